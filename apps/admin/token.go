package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	echoapi "github.com/trezcool/proctor/apps/api/echo"
	"github.com/trezcool/proctor/core/user"
)

func (cli *commandLine) tokenCmd() *cobra.Command {
	var p user.Principal

	roles := make([]string, len(user.Roles))
	for i, r := range user.Roles {
		roles[i] = fmt.Sprintf("%s (%s)", r.Value, r.Name)
	}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := cli.issueToken(p)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&p.ID, "identity", "", "the identity carried by the token")
	cmd.Flags().StringVar(&p.Username, "username", "", "display name")
	cmd.Flags().StringVar(&p.Role, "role", user.RoleCandidate, "one of: "+strings.Join(roles, ", "))
	return cmd
}

func (cli *commandLine) issueToken(p user.Principal) (string, error) {
	if err := p.Validate(cli.validate); err != nil {
		return "", errors.Wrap(err, "invalid principal")
	}
	return echoapi.GenerateToken(cli.conf, echoapi.GetPrincipalClaims(cli.conf, p))
}
