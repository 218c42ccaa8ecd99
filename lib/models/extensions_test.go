package models

import (
	"testing"

	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
)

func TestProjectAttributesSetKeepsPosition(t *testing.T) {
	attrs := &ProjectAttributes{}
	attrs.Set("Status", AttributeValue{Kind: AttributeSingleSelect, Text: "Todo"})
	attrs.Set("Estimate", AttributeValue{Kind: AttributeNumber, Number: 3})
	attrs.Set("Status", AttributeValue{Kind: AttributeSingleSelect, Text: "Done"})

	assert.Len(t, attrs.Fields, 2)
	assert.Equal(t, "Status", attrs.Fields[0].Name)
	assert.Equal(t, "Done", attrs.Status())
}

func TestProjectAttributesAccessors(t *testing.T) {
	attrs := &ProjectAttributes{}
	assert.Nil(t, attrs.Milestone())
	assert.Nil(t, attrs.LinkedPullRequest())
	assert.Equal(t, "", attrs.Status())

	attrs.Set(MilestoneField, AttributeValue{Kind: AttributeMilestone, Milestone: &Milestone{Title: "v1"}})
	attrs.Set(LinkedPRsField, AttributeValue{Kind: AttributeLinkedPullRequests, PullRequests: []LinkedPullRequest{
		{Number: 7, Title: "First"},
		{Number: 8, Title: "Second"},
	}})

	assert.Equal(t, "v1", attrs.Milestone().Title)
	assert.Equal(t, 7, attrs.LinkedPullRequest().Number)

	var missing *ProjectAttributes
	_, ok := missing.Get(StatusField)
	assert.False(t, ok)
}

func TestIsTracked(t *testing.T) {
	attrs := &ProjectAttributes{}
	attrs.Set(StatusField, AttributeValue{Kind: AttributeSingleSelect, Text: "Todo"})

	issue := ExtendedGithubIssue{Issue: github.Issue{Number: github.Int(1)}, Attributes: attrs}
	assert.True(t, issue.IsTracked())

	pr := issue
	pr.PullRequestLinks = &github.PullRequestLinks{}
	assert.False(t, pr.IsTracked())

	offBoard := ExtendedGithubIssue{Issue: github.Issue{Number: github.Int(2)}}
	assert.False(t, offBoard.IsTracked())

	noStatus := ExtendedGithubIssue{Issue: github.Issue{Number: github.Int(3)}, Attributes: &ProjectAttributes{}}
	assert.False(t, noStatus.IsTracked())
}

func TestAttributeKindText(t *testing.T) {
	text, err := AttributeMilestone.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "milestone", string(text))

	var k AttributeKind
	assert.NoError(t, k.UnmarshalText([]byte("single-select")))
	assert.Equal(t, AttributeSingleSelect, k)

	assert.NoError(t, k.UnmarshalText([]byte("iteration")))
	assert.Equal(t, AttributeUnknown, k)
}
