package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/proctor/core/quiz"
)

func (cli *commandLine) quizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Manage quizzes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}

	var author string
	load := &cobra.Command{
		Use:   "load FILE",
		Short: "Create a quiz from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := cli.loadQuiz(args[0], author)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "quiz %s created (%d questions)\n", q.ID, len(q.Questions))
			return nil
		},
	}
	load.Flags().StringVar(&author, "author", "admin", "identity recorded as the quiz creator")

	cmd.AddCommand(load)
	return cmd
}

func (cli *commandLine) loadQuiz(path, author string) (quiz.Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "reading quiz file")
	}

	var q quiz.Quiz
	if err = json.Unmarshal(data, &q); err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "decoding quiz file")
	}
	q.CreatedBy = author
	if err = q.Validate(cli.validate); err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "invalid quiz")
	}
	return cli.quizSvc.Create(context.Background(), q)
}
