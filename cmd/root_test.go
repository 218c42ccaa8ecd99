package cmd

import (
	"testing"
	"time"

	"github.com/crfeliz/issue-trello-sync/cfg"
	"github.com/crfeliz/issue-trello-sync/lib/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, env := range []string{
		"GITHUB_TOKEN", "GITHUB_REPO_OWNER", "GITHUB_REPO_OWENER", "GITHUB_REPO_NAME",
		"GITHUB_PROJECT_NUMBER", "TRELLO_KEY", "TRELLO_TOKEN", "TRELLO_BOARD_ID",
		"TRELLO_URL", "USERNAME_MAP", "LOG_LEVEL", "DRY_RUN", "TIMEOUT", "DEBUG_FILE",
	} {
		t.Setenv(env, "")
	}
}

func TestFlagsReachConfig(t *testing.T) {
	clearEnv(t)

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--github-token=gh", "--github-owner=acme", "--github-repo=repo", "--github-project=4",
		"--trello-key=key", "--trello-token=token", "--trello-board=board",
		"--dry-run", "--timeout=10s", "--log-level=panic", "--username-map=alice=alice.t",
	}))

	config, err := cfg.NewConfig(cmd)
	require.NoError(t, err)

	owner, repo := config.GetRepo()
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "repo", repo)
	assert.Equal(t, 4, config.GetProjectNumber())
	assert.True(t, config.IsDryRun())
	assert.Equal(t, 10*time.Second, config.GetTimeout())
	assert.Equal(t, "debug.json", config.GetDebugFile())
	assert.Equal(t, cfg.DefaultTrelloURL, config.GetConfigString(cfg.TrelloURL))
	assert.Equal(t, "alice.t", config.GetUserMap()["alice"])
}

func TestMissingCredentialIsConfigurationError(t *testing.T) {
	clearEnv(t)

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--github-owner=acme", "--github-repo=repo", "--github-project=4",
		"--trello-key=key", "--trello-token=token", "--trello-board=board",
	}))

	_, err := cfg.NewConfig(cmd)

	var configErr *models.ConfigurationError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "GITHUB_TOKEN", configErr.Key)
}
