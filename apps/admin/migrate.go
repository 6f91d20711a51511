package main

import (
	"path/filepath"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/trezcool/proctor/storage/database"
)

var gooseRunFunc = goose.Run // mockable

// new migrations are written to the source tree, not the embedded FS
var migrationsSourceDir = filepath.Join("storage", "database", database.MigrationsDir)

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "migrate COMMAND [ARGS...]",
		Short:              "Run a migration command",
		Long:               "Run a migration command: up, up-by-one, up-to VERSION, down, down-to VERSION, redo, reset, status, version, create NAME [go|sql], fix",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.migrate(args)
		},
	}
}

func (cli *commandLine) migrate(args []string) error {
	if err := database.SetUpGoose(cli.conf.Database.Engine); err != nil {
		return err
	}
	dir := database.MigrationsDir
	if args[0] == "create" || args[0] == "fix" {
		goose.SetBaseFS(nil)
		dir = migrationsSourceDir
	}
	return gooseRunFunc(args[0], cli.db.DB, dir, args[1:]...)
}
