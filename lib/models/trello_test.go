package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindCardForIssueUsesPrefix(t *testing.T) {
	board := Board{Cards: []Card{
		{ID: "a", Name: "#42 without colon"},
		{ID: "b", Name: "#420: Other issue"},
		{ID: "c", Name: "#42: Old title"},
		{ID: "d", Name: "#42: Duplicate"},
	}}

	card := board.FindCardForIssue(42)
	require.NotNil(t, card)
	assert.Equal(t, "c", card.ID)

	assert.Nil(t, board.FindCardForIssue(7))
}

func TestChecklistsForCardOrderedByID(t *testing.T) {
	board := Board{Checklists: []Checklist{
		{ID: "5f0000000000000000000003", CardID: "card"},
		{ID: "5f0000000000000000000001", CardID: "other"},
		{ID: "5f0000000000000000000002", CardID: "card"},
	}}

	idx := board.ChecklistsForCard("card")
	require.Len(t, idx, 2)
	assert.Equal(t, "5f0000000000000000000002", board.Checklists[idx[0]].ID)
	assert.Equal(t, "5f0000000000000000000003", board.Checklists[idx[1]].ID)

	board.RemoveChecklist("5f0000000000000000000003")
	assert.Len(t, board.Checklists, 2)
	assert.Len(t, board.ChecklistsForCard("card"), 1)
}

func TestFindEmptyLabel(t *testing.T) {
	board := Board{Labels: []Label{{ID: "1", Name: "bug"}, {ID: "2"}, {ID: "3"}}}
	assert.Equal(t, 1, board.FindEmptyLabel())

	board.Labels[1].Name = "feature"
	assert.Equal(t, 2, board.FindEmptyLabel())

	board.Labels = board.Labels[:2]
	assert.Equal(t, -1, board.FindEmptyLabel())
}

func TestCardUpdateValuesSendsOnlyChangedFields(t *testing.T) {
	update := CardUpdate{
		Changed: []CardField{CardName, CardLabels, CardDue},
		Fields: CardFields{
			Name:     "#1: Title",
			Desc:     "unchanged",
			ListID:   "list",
			LabelIDs: []string{"l1", "l2"},
		},
	}

	v, err := update.Values()
	require.NoError(t, err)
	assert.Equal(t, "#1: Title", v.Get("name"))
	assert.Equal(t, "l1,l2", v.Get("idLabels"))
	assert.True(t, v.Has("due"))
	assert.Equal(t, "", v.Get("due"))
	assert.False(t, v.Has("desc"))
	assert.False(t, v.Has("idList"))
}

func TestCardUpdateApplyTo(t *testing.T) {
	card := Card{ID: "c", Name: "#1: Old", Desc: "keep", Due: "2024-01-01T00:00:00.000Z"}
	CardUpdate{
		Changed: []CardField{CardName, CardDue, CardMembers},
		Fields:  CardFields{Name: "#1: New", Desc: "ignored", MemberIDs: []string{"m"}},
	}.ApplyTo(&card)

	assert.Equal(t, "#1: New", card.Name)
	assert.Equal(t, "keep", card.Desc)
	assert.Equal(t, "", card.Due)
	assert.Equal(t, []string{"m"}, card.MemberIDs)
}
