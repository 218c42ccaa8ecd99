package lib

import (
	"sort"

	"github.com/crfeliz/issue-trello-sync/lib/models"
)

// DiffCard compares the desired state of a card with the card on the board
// and returns the fields that differ. Empty and absent values are equal,
// and id lists are compared as sets.
func DiffCard(desired models.CardFields, card models.Card) models.CardUpdate {
	update := models.CardUpdate{Fields: desired}

	if desired.Name != card.Name {
		update.Changed = append(update.Changed, models.CardName)
	}
	if desired.Desc != card.Desc {
		update.Changed = append(update.Changed, models.CardDesc)
	}
	if desired.Due != card.Due {
		update.Changed = append(update.Changed, models.CardDue)
	}
	if desired.ListID != card.ListID {
		update.Changed = append(update.Changed, models.CardList)
	}
	if !sameIDs(desired.LabelIDs, card.LabelIDs) {
		update.Changed = append(update.Changed, models.CardLabels)
	}
	if !sameIDs(desired.MemberIDs, card.MemberIDs) {
		update.Changed = append(update.Changed, models.CardMembers)
	}

	return update
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

func changedNames(u models.CardUpdate) []string {
	names := make([]string, len(u.Changed))
	for i, f := range u.Changed {
		names[i] = string(f)
	}
	return names
}
