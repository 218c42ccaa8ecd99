package cfg

import (
	"fmt"
	"strconv"
	"time"

	"github.com/crfeliz/issue-trello-sync/lib/identity"
	"github.com/crfeliz/issue-trello-sync/lib/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Configuration keys, shared by flags, the config file and viper.
const (
	GitHubToken         = "github-token"
	GitHubOwner         = "github-owner"
	GitHubRepo          = "github-repo"
	GitHubProjectNumber = "github-project"
	TrelloKey           = "trello-key"
	TrelloToken         = "trello-token"
	TrelloBoardID       = "trello-board"
	TrelloURL           = "trello-url"
	UsernameMap         = "username-map"
	LogLevel            = "log-level"
	DryRun              = "dry-run"
	Timeout             = "timeout"
	DebugFile           = "debug-file"
	ConfigFile          = "config"
)

// DefaultTrelloURL is the base of the Trello REST API.
const DefaultTrelloURL = "https://api.trello.com/1"

// envNames lists the environment variables read for each key. The first
// one is the documented name; later ones are accepted for compatibility.
var envNames = map[string][]string{
	GitHubToken:         {"GITHUB_TOKEN"},
	GitHubOwner:         {"GITHUB_REPO_OWNER", "GITHUB_REPO_OWENER"},
	GitHubRepo:          {"GITHUB_REPO_NAME"},
	GitHubProjectNumber: {"GITHUB_PROJECT_NUMBER"},
	TrelloKey:           {"TRELLO_KEY"},
	TrelloToken:         {"TRELLO_TOKEN"},
	TrelloBoardID:       {"TRELLO_BOARD_ID"},
	TrelloURL:           {"TRELLO_URL"},
	UsernameMap:         {"USERNAME_MAP"},
	LogLevel:            {"LOG_LEVEL"},
	DryRun:              {"DRY_RUN"},
	Timeout:             {"TIMEOUT"},
	DebugFile:           {"DEBUG_FILE"},
}

var requiredKeys = []string{
	GitHubToken,
	GitHubOwner,
	GitHubRepo,
	GitHubProjectNumber,
	TrelloKey,
	TrelloToken,
	TrelloBoardID,
}

// Config is the validated configuration of a run. It is built once at
// startup and not modified afterwards.
type Config struct {
	cmdConfig *viper.Viper

	log *logrus.Entry

	projectNumber int
	userMap       identity.UserMap
	fieldMapper   FieldMapper
}

// NewConfig reads the command's flags, the environment and the optional
// config file, and validates the result.
func NewConfig(cmd *cobra.Command) (Config, error) {
	v := viper.New()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return Config{}, err
	}

	if file := v.GetString(ConfigFile); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", file, err)
		}
	}

	return FromViper(v)
}

// FromViper validates the settings held by v. Environment variables are
// bound here, so they apply whatever v was populated with.
func FromViper(v *viper.Viper) (Config, error) {
	for key, envs := range envNames {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Config{}, err
		}
	}

	v.SetDefault(LogLevel, "info")
	v.SetDefault(DebugFile, "debug.json")
	v.SetDefault(TrelloURL, DefaultTrelloURL)

	for _, key := range requiredKeys {
		if v.GetString(key) == "" {
			return Config{}, &models.ConfigurationError{Key: envNames[key][0]}
		}
	}

	level, err := logrus.ParseLevel(v.GetString(LogLevel))
	if err != nil {
		return Config{}, &models.ConfigurationError{Key: envNames[LogLevel][0], Message: err.Error()}
	}

	projectNumber, err := strconv.Atoi(v.GetString(GitHubProjectNumber))
	if err != nil || projectNumber <= 0 {
		return Config{}, &models.ConfigurationError{
			Key:     envNames[GitHubProjectNumber][0],
			Message: fmt.Sprintf("expected a positive integer, got %q", v.GetString(GitHubProjectNumber)),
		}
	}

	userMap, err := identity.ParseUserMap(v.GetString(UsernameMap))
	if err != nil {
		return Config{}, err
	}

	config := Config{
		cmdConfig:     v,
		log:           NewLogger("issue-trello-sync", level.String()),
		projectNumber: projectNumber,
		userMap:       userMap,
	}
	config.fieldMapper = DefaultFieldMapper{Config: &config}

	config.log.Debugf("Configuration loaded for %s/%s, project %d, board %s",
		config.GetConfigString(GitHubOwner), config.GetConfigString(GitHubRepo),
		projectNumber, config.GetConfigString(TrelloBoardID))

	return config, nil
}

// NewLogger creates a logger tagged with the application name. An invalid
// level falls back to info.
func NewLogger(app, level string) *logrus.Entry {
	logger := logrus.New()
	logger.Formatter = &logrus.TextFormatter{
		FullTimestamp: true,
	}

	l, err := logrus.ParseLevel(level)
	if err != nil {
		l = logrus.InfoLevel
	}
	logger.SetLevel(l)

	return logrus.NewEntry(logger).WithField("app", app)
}

// GetConfigString returns a string value from the configuration.
func (c Config) GetConfigString(key string) string {
	return c.cmdConfig.GetString(key)
}

// GetLogger returns the run's logger.
func (c Config) GetLogger() *logrus.Entry {
	return c.log
}

// IsDryRun reports whether Trello writes should only be logged.
func (c Config) IsDryRun() bool {
	return c.cmdConfig.GetBool(DryRun)
}

// GetTimeout bounds retries of read requests. Zero disables retrying.
func (c Config) GetTimeout() time.Duration {
	return c.cmdConfig.GetDuration(Timeout)
}

// GetRepo returns the owner and name of the GitHub repository.
func (c Config) GetRepo() (string, string) {
	return c.GetConfigString(GitHubOwner), c.GetConfigString(GitHubRepo)
}

// GetProjectNumber returns the organization project number.
func (c Config) GetProjectNumber() int {
	return c.projectNumber
}

// GetUserMap returns the GitHub login to Trello username overrides.
func (c Config) GetUserMap() identity.UserMap {
	return c.userMap
}

// GetFieldMapper returns the mapper turning issues into cards.
func (c Config) GetFieldMapper() FieldMapper {
	return c.fieldMapper
}

// GetDebugFile returns where the fetched snapshot is dumped; empty disables
// the dump.
func (c Config) GetDebugFile() string {
	return c.GetConfigString(DebugFile)
}
