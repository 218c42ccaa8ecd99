package cfg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/crfeliz/issue-trello-sync/lib/identity"
	"github.com/crfeliz/issue-trello-sync/lib/markdown"
	"github.com/crfeliz/issue-trello-sync/lib/models"
	"github.com/google/go-github/v62/github"
)

// DueDateFormat matches the way Trello stores due dates, so values can be
// compared as strings.
const DueDateFormat = "2006-01-02T15:04:05.000Z"

const githubURL = "https://github.com"

// FieldMapper derives the Trello card an issue should have.
type FieldMapper interface {
	// MapFields resolves names to ids against board, so the lists and
	// labels the issue refers to must already exist there.
	MapFields(issue *models.ExtendedGithubIssue, board *models.Board) (models.CardFields, error)
}

type DefaultFieldMapper struct {
	Config *Config
}

func (m DefaultFieldMapper) MapFields(issue *models.ExtendedGithubIssue, board *models.Board) (models.CardFields, error) {
	status := issue.Attributes.Status()
	list, ok := board.FindList(status)
	if !ok {
		return models.CardFields{}, fmt.Errorf("issue #%d: %w %q", issue.GetNumber(), models.ErrMissingList, status)
	}

	labelIDs := []string{}
	for _, name := range issue.LabelNames() {
		label, ok := board.FindLabel(name)
		if !ok {
			return models.CardFields{}, fmt.Errorf("issue #%d: %w %q", issue.GetNumber(), models.ErrMissingLabel, name)
		}
		labelIDs = append(labelIDs, label.ID)
	}

	memberIDs := []string{}
	for _, assignee := range issue.Assignees {
		id, err := identity.FindMatchingTrelloUser(board.Members, assignee, m.Config.GetUserMap())
		if err != nil {
			return models.CardFields{}, err
		}
		memberIDs = append(memberIDs, id)
	}

	return models.CardFields{
		Name:      CardTitle(issue),
		Desc:      m.description(issue),
		Due:       DueDate(issue),
		ListID:    list.ID,
		LabelIDs:  labelIDs,
		MemberIDs: memberIDs,
	}, nil
}

// CardTitle is the title prefix followed by the issue title.
func CardTitle(issue *models.ExtendedGithubIssue) string {
	return fmt.Sprintf("%s %s", models.TitlePrefix(issue.GetNumber()), issue.GetTitle())
}

// DueDate returns the due date of the issue's milestone, or "".
func DueDate(issue *models.ExtendedGithubIssue) string {
	if issue.Milestone == nil || issue.Milestone.DueOn == nil {
		return ""
	}
	return issue.Milestone.DueOn.UTC().Format(DueDateFormat)
}

func (m DefaultFieldMapper) description(issue *models.ExtendedGithubIssue) string {
	owner, repo := m.Config.GetRepo()
	attrs := issue.Attributes

	assignees := make([]string, 0, len(issue.Assignees))
	for _, a := range issue.Assignees {
		assignees = append(assignees, userToMarkdown(a))
	}

	lines := []string{
		fmt.Sprintf("## [View Original on GitHub](%s)", issue.GetHTMLURL()),
		fmt.Sprintf("**Created by:** %s", userToMarkdown(issue.User)),
		fmt.Sprintf("**Assigned to:** %s", orNone(strings.Join(assignees, " and "))),
		fmt.Sprintf("**Associated PR:** %s", orNone(pullRequestToMarkdown(attrs.LinkedPullRequest()))),
		fmt.Sprintf("**Milestone:** %s", orNone(milestoneToMarkdown(attrs.Milestone()))),
	}

	for _, f := range attrs.Fields {
		if isReservedField(f.Name) || !f.Value.IsScalar() {
			continue
		}
		lines = append(lines, fmt.Sprintf("**%s:** `%s`", f.Name, scalarValue(f.Value)))
	}

	lines = append(lines,
		"",
		"---",
		"",
		markdown.CleanDescriptionBody(issue.GetBody(), owner, repo),
	)

	return strings.Join(lines, "\n")
}

func isReservedField(name string) bool {
	switch name {
	case models.StatusField, models.TitleField, models.MilestoneField, models.LinkedPRsField:
		return true
	}
	return false
}

func scalarValue(v models.AttributeValue) string {
	if v.Kind == models.AttributeNumber {
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	return v.Text
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

func userToMarkdown(u *github.User) string {
	if u == nil {
		return ""
	}
	name := u.GetName()
	if name == "" {
		name = u.GetLogin()
	}
	if u.GetHTMLURL() == "" {
		return name
	}
	return fmt.Sprintf("[%s](%s)", name, u.GetHTMLURL())
}

func pullRequestToMarkdown(pr *models.LinkedPullRequest) string {
	if pr == nil {
		return ""
	}
	return fmt.Sprintf("[#%d %s](%s)", pr.Number, pr.Title, pr.Permalink)
}

func milestoneToMarkdown(ms *models.Milestone) string {
	if ms == nil {
		return ""
	}
	link := ms.ResourcePath
	if strings.HasPrefix(link, "/") {
		link = githubURL + link
	}
	return fmt.Sprintf("[%s](%s)", ms.Title, link)
}

// TestFieldMapper lets tests replace the mapping.
type TestFieldMapper struct {
	HandleMapFields func(issue *models.ExtendedGithubIssue, board *models.Board) (models.CardFields, error)
}

func (m TestFieldMapper) MapFields(issue *models.ExtendedGithubIssue, board *models.Board) (models.CardFields, error) {
	return m.HandleMapFields(issue, board)
}
