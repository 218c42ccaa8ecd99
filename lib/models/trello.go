package models

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/google/go-querystring/query"
)

// CheckItem states as stored by Trello.
const (
	StateComplete   = "complete"
	StateIncomplete = "incomplete"
)

// BoardInfo is the board metadata.
type BoardInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type List struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Closed  bool   `json:"closed"`
	BoardID string `json:"idBoard"`
}

type Label struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	BoardID string `json:"idBoard"`
}

type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
}

type Card struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Desc      string   `json:"desc"`
	Due       string   `json:"due"`
	ListID    string   `json:"idList"`
	LabelIDs  []string `json:"idLabels"`
	MemberIDs []string `json:"idMembers"`
}

type CheckItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	State       string `json:"state"`
	ChecklistID string `json:"idChecklist"`
}

// Complete reports whether the item is ticked.
func (c CheckItem) Complete() bool {
	return c.State == StateComplete
}

type Checklist struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	CardID     string      `json:"idCard"`
	CheckItems []CheckItem `json:"checkItems"`
}

// Board is the fetched state of a Trello board. The reconciliation passes
// mutate it as their writes succeed so later lookups see new ids.
type Board struct {
	Board      BoardInfo   `json:"board"`
	Lists      []List      `json:"lists"`
	Labels     []Label     `json:"labels"`
	Members    []Member    `json:"members"`
	Cards      []Card      `json:"cards"`
	Checklists []Checklist `json:"checklists"`
}

// FindList returns the first list with the given name.
func (b *Board) FindList(name string) (List, bool) {
	for _, l := range b.Lists {
		if l.Name == name {
			return l, true
		}
	}
	return List{}, false
}

// FindLabel returns the first label with the given name.
func (b *Board) FindLabel(name string) (Label, bool) {
	for _, l := range b.Labels {
		if l.Name == name {
			return l, true
		}
	}
	return Label{}, false
}

// FindEmptyLabel returns the index of the first unnamed label, or -1.
func (b *Board) FindEmptyLabel() int {
	for i, l := range b.Labels {
		if l.Name == "" {
			return i
		}
	}
	return -1
}

// TitlePrefix is the join key between a GitHub issue and its card.
func TitlePrefix(number int) string {
	return fmt.Sprintf("#%d:", number)
}

// FindCardForIssue returns the first card whose name starts with the
// issue's title prefix. The pointer is only valid until Cards is appended to.
func (b *Board) FindCardForIssue(number int) *Card {
	prefix := TitlePrefix(number)
	for i := range b.Cards {
		if strings.HasPrefix(b.Cards[i].Name, prefix) {
			return &b.Cards[i]
		}
	}
	return nil
}

// ChecklistsForCard returns the indexes of the card's checklists ordered by
// id, so the oldest checklist comes first.
func (b *Board) ChecklistsForCard(cardID string) []int {
	var idx []int
	for i, c := range b.Checklists {
		if c.CardID == cardID {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return b.Checklists[idx[i]].ID < b.Checklists[idx[j]].ID
	})
	return idx
}

// RemoveChecklist drops a checklist from the snapshot.
func (b *Board) RemoveChecklist(id string) {
	kept := b.Checklists[:0]
	for _, c := range b.Checklists {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	b.Checklists = kept
}

// CardField names a writable card attribute, using Trello's parameter name.
type CardField string

const (
	CardName    CardField = "name"
	CardDesc    CardField = "desc"
	CardDue     CardField = "due"
	CardList    CardField = "idList"
	CardLabels  CardField = "idLabels"
	CardMembers CardField = "idMembers"
)

// CardFields is the desired state of a card, and the payload of a create.
type CardFields struct {
	Name      string   `json:"name" url:"name"`
	Desc      string   `json:"desc" url:"desc,omitempty"`
	Due       string   `json:"due,omitempty" url:"due,omitempty"`
	ListID    string   `json:"idList" url:"idList"`
	LabelIDs  []string `json:"idLabels" url:"idLabels,comma,omitempty"`
	MemberIDs []string `json:"idMembers" url:"idMembers,comma,omitempty"`
}

// Values encodes the fields as Trello query parameters.
func (f CardFields) Values() (url.Values, error) {
	return query.Values(f)
}

// CardUpdate is a partial update: only Changed fields are sent.
type CardUpdate struct {
	Changed []CardField
	Fields  CardFields
}

func (u CardUpdate) IsEmpty() bool {
	return len(u.Changed) == 0
}

// Values encodes the changed fields. A field changed to an empty value is
// sent empty so Trello clears it.
func (u CardUpdate) Values() (url.Values, error) {
	all, err := u.Fields.Values()
	if err != nil {
		return nil, err
	}
	v := url.Values{}
	for _, f := range u.Changed {
		v.Set(string(f), all.Get(string(f)))
	}
	return v, nil
}

// ApplyTo copies the changed fields onto a card.
func (u CardUpdate) ApplyTo(c *Card) {
	for _, f := range u.Changed {
		switch f {
		case CardName:
			c.Name = u.Fields.Name
		case CardDesc:
			c.Desc = u.Fields.Desc
		case CardDue:
			c.Due = u.Fields.Due
		case CardList:
			c.ListID = u.Fields.ListID
		case CardLabels:
			c.LabelIDs = append([]string(nil), u.Fields.LabelIDs...)
		case CardMembers:
			c.MemberIDs = append([]string(nil), u.Fields.MemberIDs...)
		}
	}
}

type NewList struct {
	Name    string `url:"name"`
	BoardID string `url:"idBoard"`
}

type NewLabel struct {
	Name    string `url:"name"`
	Color   string `url:"color"`
	BoardID string `url:"idBoard"`
}

type NewChecklist struct {
	CardID string `url:"idCard"`
	Name   string `url:"name"`
}

type NewCheckItem struct {
	Name    string `url:"name"`
	Checked bool   `url:"checked"`
}

// ChecklistEntry is a task-list line from an issue body.
type ChecklistEntry struct {
	Label     string
	Completed bool
}
