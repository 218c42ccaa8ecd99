package lib

import (
	"context"
	"encoding/json"
	"os"

	"github.com/crfeliz/issue-trello-sync/cfg"
	"github.com/crfeliz/issue-trello-sync/lib/issuesyncgithub"
	"github.com/crfeliz/issue-trello-sync/lib/issuesynctrello"
	"github.com/crfeliz/issue-trello-sync/lib/models"
	"github.com/google/go-github/v62/github"
	"golang.org/x/sync/errgroup"
)

// Snapshot is everything a run knows about both sides before it starts
// writing. The board is updated in place as writes succeed.
type Snapshot struct {
	Issues   []models.ExtendedGithubIssue `json:"issues"`
	Labels   []string                     `json:"labels"`
	Projects models.ProjectBoard          `json:"projects"`
	Board    *models.Board                `json:"board"`
}

// Run fetches the GitHub issues, their project attributes and the Trello
// board, then brings the board in line with GitHub.
func Run(ctx context.Context, config cfg.Config, ghClient issuesyncgithub.Client, trelloClient issuesynctrello.Client) (Result, error) {
	log := config.GetLogger()

	snapshot, err := FetchSnapshot(ctx, config, ghClient, trelloClient)
	if err != nil {
		return Result{}, err
	}

	if path := config.GetDebugFile(); path != "" {
		if err := writeDebugFile(path, snapshot); err != nil {
			log.Errorf("Error writing debug file %s: %v", path, err)
			return Result{}, err
		}
		log.Debugf("Wrote fetched data to %s", path)
	}

	return NewReconciler(config, trelloClient).Reconcile(ctx, snapshot)
}

// FetchSnapshot reads both sides and joins every issue with its project
// attributes. Issues that are not on the project get nil attributes.
func FetchSnapshot(ctx context.Context, config cfg.Config, ghClient issuesyncgithub.Client, trelloClient issuesynctrello.Client) (*Snapshot, error) {
	log := config.GetLogger()
	timeout := config.GetTimeout()
	owner, repo := config.GetRepo()

	log.Debug("Collecting issues")

	var (
		ghIssues []*github.Issue
		labels   []string
		projects models.ProjectBoard
		board    *models.Board
	)

	// The four reads are independent; the first failure cancels the others
	// and is returned.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ghIssues, err = issuesyncgithub.ListIssues(gctx, ghClient, timeout, owner, repo)
		return err
	})
	g.Go(func() (err error) {
		labels, err = issuesyncgithub.ListLabels(gctx, ghClient, timeout, owner, repo)
		return err
	})
	g.Go(func() (err error) {
		projects, err = issuesyncgithub.GetProjectAttributes(gctx, ghClient, timeout, owner, config.GetProjectNumber())
		return err
	})
	g.Go(func() (err error) {
		board, err = trelloClient.GetBoard(gctx, config.GetConfigString(cfg.TrelloBoardID))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	issues := make([]models.ExtendedGithubIssue, 0, len(ghIssues))
	for _, i := range ghIssues {
		issues = append(issues, models.ExtendedGithubIssue{
			Issue:      *i,
			Attributes: projects[i.GetNumber()],
		})
	}

	log.Infof("Fetched %d issues, %d labels, %d project items and %d cards",
		len(issues), len(labels), len(projects), len(board.Cards))

	return &Snapshot{
		Issues:   issues,
		Labels:   labels,
		Projects: projects,
		Board:    board,
	}, nil
}

func writeDebugFile(path string, snapshot *Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
