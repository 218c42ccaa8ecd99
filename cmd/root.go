package cmd

import (
	"context"
	"errors"

	"github.com/crfeliz/issue-trello-sync/cfg"
	"github.com/crfeliz/issue-trello-sync/lib"
	"github.com/crfeliz/issue-trello-sync/lib/issuesyncgithub"
	"github.com/crfeliz/issue-trello-sync/lib/issuesynctrello"
	"github.com/crfeliz/issue-trello-sync/lib/models"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RootCmd represents the command itself and its configuration.
var RootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue-trello-sync [options]",
		Short: "A tool to synchronize GitHub project issues onto a Trello board",
		Long: "Mirror the open issues of a GitHub repository that are on a GitHub " +
			"project onto a Trello board, with one list per project status, one " +
			"card per issue and the issue's task list as the card's checklist.",
		SilenceUsage: true,
		RunE:         run,
	}

	addFlags(cmd.PersistentFlags())

	return cmd
}

// addFlags declares one flag per configuration key. The flag names are the
// keys, so viper can bind them directly.
func addFlags(flags *pflag.FlagSet) {
	flags.String(cfg.ConfigFile, "", "Config file (JSON, YAML or TOML)")
	flags.String(cfg.LogLevel, "info", "Set the global log level")
	flags.Bool(cfg.DryRun, false, "Print the Trello writes without making them")
	flags.Duration(cfg.Timeout, 0, "How long to keep retrying failed reads (0 disables retries)")
	flags.String(cfg.DebugFile, "debug.json", "Where to dump the fetched data (empty disables the dump)")

	flags.String(cfg.GitHubToken, "", "Set the API token used to access the GitHub repo")
	flags.String(cfg.GitHubOwner, "", "Set the owner of the GitHub repo and project")
	flags.String(cfg.GitHubRepo, "", "Set the name of the GitHub repo")
	flags.String(cfg.GitHubProjectNumber, "", "Set the number of the GitHub project")

	flags.String(cfg.TrelloKey, "", "Set the Trello API key")
	flags.String(cfg.TrelloToken, "", "Set the Trello API token")
	flags.String(cfg.TrelloBoardID, "", "Set the id of the Trello board")
	flags.String(cfg.TrelloURL, cfg.DefaultTrelloURL, "Set the base URL of the Trello API")
	flags.String(cfg.UsernameMap, "", "Map GitHub logins to Trello usernames (login=username,...)")
}

func run(cmd *cobra.Command, args []string) error {
	config, err := cfg.NewConfig(cmd)
	if err != nil {
		return err
	}

	log := config.GetLogger()

	ghClient, err := issuesyncgithub.NewClient(config)
	if err != nil {
		return err
	}
	trelloClient := issuesynctrello.NewClient(config)

	if _, err := lib.Run(context.Background(), config, ghClient, trelloClient); err != nil {
		var configErr *models.ConfigurationError
		if errors.As(err, &configErr) {
			log.Errorf("Configuration problem: %v", configErr)
		}
		return err
	}

	return nil
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}
