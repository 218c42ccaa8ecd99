package issuesyncgithub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/crfeliz/issue-trello-sync/cfg"
	"github.com/crfeliz/issue-trello-sync/lib/models"
	"github.com/crfeliz/issue-trello-sync/lib/utils"
	"github.com/google/go-github/v62/github"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// perPage is the largest page size the GitHub REST API allows.
const perPage = 100

// Client is a wrapper around the GitHub API client library we use. It
// allows us to swap in other implementations, such as mock clients for
// testing.
type Client interface {
	getLogger() *logrus.Entry
	listByRepo(ctx context.Context, owner string, repo string, page int) ([]*github.Issue, *github.Response, error)
	listLabels(ctx context.Context, owner string, repo string, page int) ([]*github.Label, *github.Response, error)
	graphQL(ctx context.Context, query string, variables map[string]interface{}, out interface{}) (*github.Response, error)
	getRateLimits(ctx context.Context) (*github.RateLimits, *github.Response, error)
}

// realGHClient is a standard GitHub client, that actually makes all of the
// requests against the GitHub API. It is the canonical implementation of
// Client.
type realGHClient struct {
	client *github.Client
	log    *logrus.Entry
}

func (g realGHClient) getLogger() *logrus.Entry {
	return g.log
}

func (g realGHClient) listByRepo(ctx context.Context, owner string, repo string, page int) ([]*github.Issue, *github.Response, error) {
	return g.client.Issues.ListByRepo(ctx, owner, repo, &github.IssueListByRepoOptions{
		State:     "open",
		Sort:      "created",
		Direction: "asc",
		ListOptions: github.ListOptions{
			Page:    page,
			PerPage: perPage,
		},
	})
}

func (g realGHClient) listLabels(ctx context.Context, owner string, repo string, page int) ([]*github.Label, *github.Response, error) {
	return g.client.Issues.ListLabels(ctx, owner, repo, &github.ListOptions{
		Page:    page,
		PerPage: perPage,
	})
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// graphQL posts a query to the GraphQL endpoint through the REST client,
// so both share authentication and error handling.
func (g realGHClient) graphQL(ctx context.Context, query string, variables map[string]interface{}, out interface{}) (*github.Response, error) {
	req, err := g.client.NewRequest(http.MethodPost, "graphql", graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, err
	}

	var body graphQLResponse
	res, err := g.client.Do(ctx, req, &body)
	if err != nil {
		return res, err
	}

	if len(body.Errors) > 0 {
		messages := make([]string, len(body.Errors))
		for i, e := range body.Errors {
			messages[i] = e.Message
		}
		return res, fmt.Errorf("graphql: %s", strings.Join(messages, "; "))
	}

	return res, json.Unmarshal(body.Data, out)
}

func (g realGHClient) getRateLimits(ctx context.Context) (*github.RateLimits, *github.Response, error) {
	return g.client.RateLimit.Get(ctx)
}

// TestGHClient is a Client whose behaviour is set per test.
type TestGHClient struct {
	HandleGetLogger     func() *logrus.Entry
	HandleListByRepo    func(ctx context.Context, owner string, repo string, page int) ([]*github.Issue, *github.Response, error)
	HandleListLabels    func(ctx context.Context, owner string, repo string, page int) ([]*github.Label, *github.Response, error)
	HandleGraphQL       func(ctx context.Context, query string, variables map[string]interface{}, out interface{}) (*github.Response, error)
	HandleGetRateLimits func(ctx context.Context) (*github.RateLimits, *github.Response, error)
}

func (g TestGHClient) getLogger() *logrus.Entry {
	if g.HandleGetLogger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return logrus.NewEntry(l)
	}
	return g.HandleGetLogger()
}

func (g TestGHClient) listByRepo(ctx context.Context, owner string, repo string, page int) ([]*github.Issue, *github.Response, error) {
	return g.HandleListByRepo(ctx, owner, repo, page)
}

func (g TestGHClient) listLabels(ctx context.Context, owner string, repo string, page int) ([]*github.Label, *github.Response, error) {
	return g.HandleListLabels(ctx, owner, repo, page)
}

func (g TestGHClient) graphQL(ctx context.Context, query string, variables map[string]interface{}, out interface{}) (*github.Response, error) {
	return g.HandleGraphQL(ctx, query, variables, out)
}

func (g TestGHClient) getRateLimits(ctx context.Context) (*github.RateLimits, *github.Response, error) {
	return g.HandleGetRateLimits(ctx)
}

// call runs f with retries and turns failures into RemoteAPIErrors. Client
// errors (4xx) are not retried, and neither is anything once ctx is done.
func call[T any](ctx context.Context, g Client, timeout time.Duration, endpoint string, f func() (T, *github.Response, error)) (T, *github.Response, error) {
	var res *github.Response
	ret, err := utils.Retry(g.getLogger(), timeout, func() (T, error) {
		v, r, err := f()
		res = r
		if err == nil {
			return v, nil
		}
		remote := &models.RemoteAPIError{Service: "github", Endpoint: endpoint, Err: err}
		if ctx.Err() != nil {
			return v, backoff.Permanent(remote)
		}
		if r != nil && r.Response != nil {
			remote.StatusCode = r.StatusCode
			if r.StatusCode < http.StatusInternalServerError {
				return v, backoff.Permanent(remote)
			}
		}
		return v, remote
	})
	return ret, res, err
}

// ListIssues returns every open issue and pull request of the repository.
func ListIssues(ctx context.Context, g Client, timeout time.Duration, owner string, repo string) ([]*github.Issue, error) {
	log := g.getLogger()
	endpoint := fmt.Sprintf("GET /repos/%s/%s/issues", owner, repo)

	var issues []*github.Issue
	for page := 1; page != 0; {
		is, res, err := call(ctx, g, timeout, endpoint, func() ([]*github.Issue, *github.Response, error) {
			return g.listByRepo(ctx, owner, repo, page)
		})
		if err != nil {
			log.Errorf("Error retrieving GitHub issues: %v", err)
			return nil, err
		}
		issues = append(issues, is...)
		page = nextPage(res)
	}

	log.Debugf("Collected %d GitHub issues", len(issues))

	return issues, nil
}

// ListLabels returns the names of the repository's labels.
func ListLabels(ctx context.Context, g Client, timeout time.Duration, owner string, repo string) ([]string, error) {
	log := g.getLogger()
	endpoint := fmt.Sprintf("GET /repos/%s/%s/labels", owner, repo)

	var names []string
	for page := 1; page != 0; {
		ls, res, err := call(ctx, g, timeout, endpoint, func() ([]*github.Label, *github.Response, error) {
			return g.listLabels(ctx, owner, repo, page)
		})
		if err != nil {
			log.Errorf("Error retrieving GitHub labels: %v", err)
			return nil, err
		}
		for _, l := range ls {
			names = append(names, l.GetName())
		}
		page = nextPage(res)
	}

	log.Debugf("Collected %d GitHub labels", len(names))

	return names, nil
}

func nextPage(res *github.Response) int {
	if res == nil {
		return 0
	}
	return res.NextPage
}

// NewClient creates a Client authenticated with the configured token and
// checks that GitHub can be reached.
func NewClient(config cfg.Config) (Client, error) {
	log := config.GetLogger()

	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: config.GetConfigString(cfg.GitHubToken)},
	)
	tc := oauth2.NewClient(ctx, ts)

	ret := realGHClient{
		client: github.NewClient(tc),
		log:    log,
	}

	// Make a request so we can check that we can connect fine.
	_, _, err := call(ctx, ret, config.GetTimeout(), "GET /rate_limit", func() (*github.RateLimits, *github.Response, error) {
		return ret.getRateLimits(ctx)
	})
	if err != nil {
		return nil, err
	}
	log.Debug("Successfully connected to GitHub.")

	return ret, nil
}
