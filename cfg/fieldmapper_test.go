package cfg

import (
	"errors"
	"testing"
	"time"

	"github.com/crfeliz/issue-trello-sync/lib/markdown"
	"github.com/crfeliz/issue-trello-sync/lib/models"
	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBoard() *models.Board {
	return &models.Board{
		Lists:  []models.List{{ID: "list-todo", Name: "Todo"}, {ID: "list-done", Name: "Done"}},
		Labels: []models.Label{{ID: "label-bug", Name: "bug"}, {ID: "label-ui", Name: "ui"}},
		Members: []models.Member{
			{ID: "member-alice", Username: "alice.t"},
			{ID: "member-bob", Username: "bob"},
		},
	}
}

func testIssue() *models.ExtendedGithubIssue {
	attrs := &models.ProjectAttributes{}
	attrs.Set(models.TitleField, models.AttributeValue{Kind: models.AttributeText, Text: "Ignored"})
	attrs.Set(models.StatusField, models.AttributeValue{Kind: models.AttributeSingleSelect, Text: "Todo"})
	attrs.Set("Priority", models.AttributeValue{Kind: models.AttributeSingleSelect, Text: "High"})
	attrs.Set("Estimate", models.AttributeValue{Kind: models.AttributeNumber, Number: 2.5})
	attrs.Set(models.MilestoneField, models.AttributeValue{Kind: models.AttributeMilestone, Milestone: &models.Milestone{
		Title:        "v1.0",
		ResourcePath: "/acme/repo/milestone/1",
	}})
	attrs.Set(models.LinkedPRsField, models.AttributeValue{Kind: models.AttributeLinkedPullRequests, PullRequests: []models.LinkedPullRequest{
		{Number: 12, Title: "Fix it", Permalink: "https://github.com/acme/repo/pull/12"},
		{Number: 13, Title: "Fix it again", Permalink: "https://github.com/acme/repo/pull/13"},
	}})
	attrs.Set("Mystery", models.AttributeValue{Kind: models.AttributeUnknown})

	due := time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)

	return &models.ExtendedGithubIssue{
		Issue: github.Issue{
			Number:  github.Int(42),
			Title:   github.String("Crash on start"),
			Body:    github.String("It crashes.\r\n- [x] Reproduce\r\n- [ ] Fix\r\n"),
			HTMLURL: github.String("https://github.com/acme/repo/issues/42"),
			User: &github.User{
				Login:   github.String("carol"),
				Name:    github.String("Carol"),
				HTMLURL: github.String("https://github.com/carol"),
			},
			Assignees: []*github.User{
				{Login: github.String("alice"), HTMLURL: github.String("https://github.com/alice")},
				{Login: github.String("bob"), HTMLURL: github.String("https://github.com/bob")},
			},
			Labels: []*github.Label{{Name: github.String("ui")}, {Name: github.String("bug")}},
			Milestone: &github.Milestone{
				Title: github.String("v1.0"),
				DueOn: &github.Timestamp{Time: due},
			},
		},
		Attributes: attrs,
	}
}

func testMapper(t *testing.T) FieldMapper {
	v := testViper()
	v.Set(UsernameMap, "alice=alice.t")
	config, err := FromViper(v)
	require.NoError(t, err)
	return config.GetFieldMapper()
}

func TestMapFields(t *testing.T) {
	fields, err := testMapper(t).MapFields(testIssue(), testBoard())
	require.NoError(t, err)

	assert.Equal(t, "#42: Crash on start", fields.Name)
	assert.Equal(t, "2024-03-01T07:00:00.000Z", fields.Due)
	assert.Equal(t, "list-todo", fields.ListID)
	assert.Equal(t, []string{"label-ui", "label-bug"}, fields.LabelIDs)
	assert.Equal(t, []string{"member-alice", "member-bob"}, fields.MemberIDs)

	expected := "## [View Original on GitHub](https://github.com/acme/repo/issues/42)\n" +
		"**Created by:** [Carol](https://github.com/carol)\n" +
		"**Assigned to:** [alice](https://github.com/alice) and [bob](https://github.com/bob)\n" +
		"**Associated PR:** [#12 Fix it](https://github.com/acme/repo/pull/12)\n" +
		"**Milestone:** [v1.0](https://github.com/acme/repo/milestone/1)\n" +
		"**Priority:** `High`\n" +
		"**Estimate:** `2.5`\n" +
		"\n---\n\n" +
		"It crashes.\n" + markdown.ChecklistPlaceholder + "\n"
	assert.Equal(t, expected, fields.Desc)
}

func TestMapFieldsDefaults(t *testing.T) {
	issue := testIssue()
	attrs := &models.ProjectAttributes{}
	attrs.Set(models.StatusField, models.AttributeValue{Kind: models.AttributeSingleSelect, Text: "Done"})
	issue.Attributes = attrs
	issue.Assignees = nil
	issue.Labels = nil
	issue.Milestone = nil
	issue.Body = nil

	fields, err := testMapper(t).MapFields(issue, testBoard())
	require.NoError(t, err)

	assert.Equal(t, "", fields.Due)
	assert.Equal(t, "list-done", fields.ListID)
	assert.Empty(t, fields.LabelIDs)
	assert.Empty(t, fields.MemberIDs)
	assert.Contains(t, fields.Desc, "**Assigned to:** None\n")
	assert.Contains(t, fields.Desc, "**Associated PR:** None\n")
	assert.Contains(t, fields.Desc, "**Milestone:** None\n")
}

func TestMapFieldsErrors(t *testing.T) {
	mapper := testMapper(t)

	issue := testIssue()
	issue.Attributes.Set(models.StatusField, models.AttributeValue{Kind: models.AttributeSingleSelect, Text: "Blocked"})
	_, err := mapper.MapFields(issue, testBoard())
	assert.True(t, errors.Is(err, models.ErrMissingList))

	issue = testIssue()
	issue.Labels = append(issue.Labels, &github.Label{Name: github.String("unknown")})
	_, err = mapper.MapFields(issue, testBoard())
	assert.ErrorIs(t, err, models.ErrMissingLabel)

	issue = testIssue()
	issue.Assignees = append(issue.Assignees, &github.User{Login: github.String("mallory")})
	_, err = mapper.MapFields(issue, testBoard())
	var cfgErr *models.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Error(), "mallory")
}
