package issuesyncgithub

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/crfeliz/issue-trello-sync/lib/models"
	"github.com/google/go-github/v62/github"
)

//go:embed graphql/projectId.graphql
var projectIDQuery string

//go:embed graphql/projectInfo.graphql
var projectInfoQuery string

type projectIDResult struct {
	Organization struct {
		ProjectV2 *struct {
			ID string `json:"id"`
		} `json:"projectV2"`
	} `json:"organization"`
}

type projectInfoResult struct {
	Node struct {
		Items struct {
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			Nodes []projectItem `json:"nodes"`
		} `json:"items"`
	} `json:"node"`
}

type projectItem struct {
	Content *struct {
		Number *int `json:"number"`
	} `json:"content"`
	FieldValues struct {
		Nodes []fieldValue `json:"nodes"`
	} `json:"fieldValues"`
}

// fieldValue is the union of the ProjectV2ItemField*Value types we query.
type fieldValue struct {
	Text         *string           `json:"text"`
	Name         *string           `json:"name"`
	Number       *float64          `json:"number"`
	Milestone    *models.Milestone `json:"milestone"`
	PullRequests *struct {
		Nodes []models.LinkedPullRequest `json:"nodes"`
	} `json:"pullRequests"`
	Field *struct {
		Name string `json:"name"`
	} `json:"field"`
}

func (v fieldValue) toAttribute() models.AttributeValue {
	switch {
	case v.Text != nil:
		return models.AttributeValue{Kind: models.AttributeText, Text: *v.Text}
	case v.Name != nil:
		return models.AttributeValue{Kind: models.AttributeSingleSelect, Text: *v.Name}
	case v.Number != nil:
		return models.AttributeValue{Kind: models.AttributeNumber, Number: *v.Number}
	case v.Milestone != nil:
		return models.AttributeValue{Kind: models.AttributeMilestone, Milestone: v.Milestone}
	case v.PullRequests != nil:
		return models.AttributeValue{Kind: models.AttributeLinkedPullRequests, PullRequests: v.PullRequests.Nodes}
	default:
		return models.AttributeValue{Kind: models.AttributeUnknown}
	}
}

// GetProjectAttributes returns the custom field values of every issue on
// the organization's project, keyed by issue number.
func GetProjectAttributes(ctx context.Context, g Client, timeout time.Duration, owner string, projectNumber int) (models.ProjectBoard, error) {
	log := g.getLogger()

	idResult, _, err := call(ctx, g, timeout, "POST /graphql projectV2", func() (projectIDResult, *github.Response, error) {
		var out projectIDResult
		res, err := g.graphQL(ctx, projectIDQuery, map[string]interface{}{
			"owner":         owner,
			"projectNumber": projectNumber,
		}, &out)
		return out, res, err
	})
	if err != nil {
		log.Errorf("Error resolving project %s/%d: %v", owner, projectNumber, err)
		return nil, err
	}
	if idResult.Organization.ProjectV2 == nil {
		return nil, &models.RemoteAPIError{
			Service:  "github",
			Endpoint: "POST /graphql projectV2",
			Err:      fmt.Errorf("project %d not found for organization %s", projectNumber, owner),
		}
	}
	projectID := idResult.Organization.ProjectV2.ID

	log.Debugf("Resolved project %s/%d to %s", owner, projectNumber, projectID)

	board := models.ProjectBoard{}
	var cursor *string
	for {
		info, _, err := call(ctx, g, timeout, "POST /graphql projectV2 items", func() (projectInfoResult, *github.Response, error) {
			var out projectInfoResult
			res, err := g.graphQL(ctx, projectInfoQuery, map[string]interface{}{
				"projectId": projectID,
				"cursor":    cursor,
			}, &out)
			return out, res, err
		})
		if err != nil {
			log.Errorf("Error retrieving items of project %s: %v", projectID, err)
			return nil, err
		}

		for _, item := range info.Node.Items.Nodes {
			// draft issues have no number
			if item.Content == nil || item.Content.Number == nil {
				continue
			}
			attrs, ok := board[*item.Content.Number]
			if !ok {
				attrs = &models.ProjectAttributes{}
				board[*item.Content.Number] = attrs
			}
			for _, v := range item.FieldValues.Nodes {
				if v.Field == nil {
					continue
				}
				attrs.Set(v.Field.Name, v.toAttribute())
			}
		}

		page := info.Node.Items.PageInfo
		if !page.HasNextPage {
			break
		}
		next := page.EndCursor
		cursor = &next
	}

	log.Debugf("Collected project fields for %d items", len(board))

	return board, nil
}
