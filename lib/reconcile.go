package lib

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/crfeliz/issue-trello-sync/cfg"
	"github.com/crfeliz/issue-trello-sync/lib/issuesynctrello"
	"github.com/crfeliz/issue-trello-sync/lib/markdown"
	"github.com/crfeliz/issue-trello-sync/lib/models"
	"github.com/sirupsen/logrus"
)

// Result summarises a reconciliation.
type Result struct {
	Writes int
}

// Reconciler applies the writes needed to make a board match a snapshot.
type Reconciler struct {
	config cfg.Config
	trello issuesynctrello.Client
	log    *logrus.Entry
	writes int
}

func NewReconciler(config cfg.Config, trelloClient issuesynctrello.Client) *Reconciler {
	return &Reconciler{
		config: config,
		trello: trelloClient,
		log:    config.GetLogger(),
	}
}

type pass struct {
	name string
	run  func(ctx context.Context, snapshot *Snapshot) error
}

// Reconcile runs the lists, labels, cards and checklists passes in that
// order. Each pass relies on the entities created by the ones before it,
// so the first error stops the run.
func (r *Reconciler) Reconcile(ctx context.Context, snapshot *Snapshot) (Result, error) {
	passes := []pass{
		{"lists", r.reconcileLists},
		{"labels", r.reconcileLabels},
		{"cards", r.reconcileCards},
		{"checklists", r.reconcileChecklists},
	}

	for _, p := range passes {
		if err := ctx.Err(); err != nil {
			return Result{Writes: r.writes}, err
		}
		r.log.Debugf("Reconciling %s", p.name)
		if err := p.run(ctx, snapshot); err != nil {
			r.log.Errorf("Error reconciling %s: %v", p.name, err)
			return Result{Writes: r.writes}, fmt.Errorf("%s: %w", p.name, err)
		}
	}

	r.log.Infof("Board is up to date after %d writes", r.writes)

	return Result{Writes: r.writes}, nil
}

// tracked returns the issues that should have a card, in issue number order.
func tracked(snapshot *Snapshot) []*models.ExtendedGithubIssue {
	var issues []*models.ExtendedGithubIssue
	for i := range snapshot.Issues {
		if snapshot.Issues[i].IsTracked() {
			issues = append(issues, &snapshot.Issues[i])
		}
	}
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].GetNumber() < issues[j].GetNumber()
	})
	return issues
}

// statuses returns every Status on the project in issue number order,
// including items that are closed or not in the issue listing, followed by
// any left on tracked issues.
func statuses(snapshot *Snapshot) []string {
	numbers := make([]int, 0, len(snapshot.Projects))
	for n := range snapshot.Projects {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	var out []string
	seen := map[string]bool{}
	add := func(status string) {
		if status == "" || seen[status] {
			return
		}
		seen[status] = true
		out = append(out, status)
	}
	for _, n := range numbers {
		add(snapshot.Projects[n].Status())
	}
	for _, issue := range tracked(snapshot) {
		add(issue.Attributes.Status())
	}
	return out
}

func (r *Reconciler) reconcileLists(ctx context.Context, snapshot *Snapshot) error {
	board := snapshot.Board

	for _, status := range statuses(snapshot) {
		if _, ok := board.FindList(status); ok {
			continue
		}

		list, err := r.trello.CreateList(ctx, models.NewList{Name: status, BoardID: board.Board.ID})
		if err != nil {
			return err
		}
		r.writes++
		r.log.Infof("Created list %q", status)

		board.Lists = append(board.Lists, list)
	}

	return nil
}

func (r *Reconciler) reconcileLabels(ctx context.Context, snapshot *Snapshot) error {
	board := snapshot.Board

	names := append([]string(nil), snapshot.Labels...)
	for _, issue := range tracked(snapshot) {
		names = append(names, issue.LabelNames()...)
	}

	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := board.FindLabel(name); ok {
			continue
		}

		// Unnamed labels are reused before new ones are created.
		if i := board.FindEmptyLabel(); i >= 0 {
			label, err := r.trello.UpdateLabel(ctx, board.Labels[i].ID, name)
			if err != nil {
				return err
			}
			r.writes++
			r.log.Infof("Renamed unnamed label %s to %q", board.Labels[i].ID, name)

			board.Labels[i].Name = name
			if label.Color != "" {
				board.Labels[i].Color = label.Color
			}
			continue
		}

		label, err := r.trello.CreateLabel(ctx, models.NewLabel{
			Name:    name,
			Color:   issuesynctrello.DefaultLabelColor,
			BoardID: board.Board.ID,
		})
		if err != nil {
			return err
		}
		r.writes++
		r.log.Infof("Created label %q", name)

		board.Labels = append(board.Labels, label)
	}

	return nil
}

func (r *Reconciler) reconcileCards(ctx context.Context, snapshot *Snapshot) error {
	board := snapshot.Board
	mapper := r.config.GetFieldMapper()

	for _, issue := range tracked(snapshot) {
		desired, err := mapper.MapFields(issue, board)
		if err != nil {
			return err
		}

		card := board.FindCardForIssue(issue.GetNumber())
		if card == nil {
			created, err := r.trello.CreateCard(ctx, desired)
			if err != nil {
				return err
			}
			r.writes++
			r.log.Infof("Created card %s for GitHub #%d", created.ID, issue.GetNumber())

			board.Cards = append(board.Cards, created)
			continue
		}

		update := DiffCard(desired, *card)
		if update.IsEmpty() {
			r.log.Debugf("Card %s is already up to date with GitHub #%d", card.ID, issue.GetNumber())
			continue
		}

		r.log.Debugf("Updating %s of card %s with GitHub #%d", strings.Join(changedNames(update), ", "), card.ID, issue.GetNumber())
		if _, err := r.trello.UpdateCard(ctx, card.ID, update); err != nil {
			return err
		}
		r.writes++
		r.log.Infof("Updated card %s for GitHub #%d", card.ID, issue.GetNumber())

		update.ApplyTo(card)
	}

	return nil
}

func (r *Reconciler) reconcileChecklists(ctx context.Context, snapshot *Snapshot) error {
	board := snapshot.Board

	for _, issue := range tracked(snapshot) {
		card := board.FindCardForIssue(issue.GetNumber())
		if card == nil {
			return fmt.Errorf("issue #%d: %w", issue.GetNumber(), models.ErrMissingCard)
		}
		cardID := card.ID

		checklistID, err := r.ensureSingleChecklist(ctx, board, cardID)
		if err != nil {
			return err
		}

		var checklist *models.Checklist
		for i := range board.Checklists {
			if board.Checklists[i].ID == checklistID {
				checklist = &board.Checklists[i]
				break
			}
		}

		entries := markdown.ExtractChecklistItems(issue.GetBody())
		if err := r.syncCheckItems(ctx, cardID, checklist, entries); err != nil {
			return err
		}
	}

	return nil
}

// ensureSingleChecklist leaves the card with exactly one checklist, keeping
// the oldest, and returns its id.
func (r *Reconciler) ensureSingleChecklist(ctx context.Context, board *models.Board, cardID string) (string, error) {
	idx := board.ChecklistsForCard(cardID)

	if len(idx) == 0 {
		checklist, err := r.trello.CreateChecklist(ctx, models.NewChecklist{
			CardID: cardID,
			Name:   issuesynctrello.DefaultChecklistName,
		})
		if err != nil {
			return "", err
		}
		r.writes++
		r.log.Infof("Created checklist on card %s", cardID)

		checklist.CardID = cardID
		board.Checklists = append(board.Checklists, checklist)
		return checklist.ID, nil
	}

	keep := board.Checklists[idx[0]].ID
	var extra []string
	for _, i := range idx[1:] {
		extra = append(extra, board.Checklists[i].ID)
	}

	for _, id := range extra {
		if err := r.trello.DeleteChecklist(ctx, id); err != nil {
			return "", err
		}
		r.writes++
		r.log.Infof("Deleted duplicate checklist %s on card %s", id, cardID)

		board.RemoveChecklist(id)
	}

	return keep, nil
}

// syncCheckItems makes the checklist hold exactly one item per entry, with
// the entry's completion state.
func (r *Reconciler) syncCheckItems(ctx context.Context, cardID string, checklist *models.Checklist, entries []models.ChecklistEntry) error {
	wanted := map[string]bool{}
	for _, e := range entries {
		if _, ok := wanted[e.Label]; ok {
			continue
		}
		wanted[e.Label] = e.Completed

		i := findCheckItem(checklist.CheckItems, e.Label)
		if i < 0 {
			item, err := r.trello.CreateCheckItem(ctx, checklist.ID, models.NewCheckItem{Name: e.Label, Checked: e.Completed})
			if err != nil {
				return err
			}
			r.writes++
			r.log.Debugf("Added %q to checklist %s", e.Label, checklist.ID)

			item.Name = e.Label
			item.State = checkState(e.Completed)
			checklist.CheckItems = append(checklist.CheckItems, item)
			continue
		}

		if checklist.CheckItems[i].Complete() == e.Completed {
			continue
		}
		if _, err := r.trello.UpdateCheckItem(ctx, cardID, checklist.CheckItems[i].ID, e.Completed); err != nil {
			return err
		}
		r.writes++
		r.log.Debugf("Marked %q as %s", e.Label, checkState(e.Completed))

		checklist.CheckItems[i].State = checkState(e.Completed)
	}

	seen := map[string]bool{}
	kept := make([]models.CheckItem, 0, len(checklist.CheckItems))
	for n, item := range checklist.CheckItems {
		if _, ok := wanted[item.Name]; ok && !seen[item.Name] {
			seen[item.Name] = true
			kept = append(kept, item)
			continue
		}

		if err := r.trello.DeleteCheckItem(ctx, checklist.ID, item.ID); err != nil {
			checklist.CheckItems = append(kept, checklist.CheckItems[n:]...)
			return err
		}
		r.writes++
		r.log.Debugf("Removed %q from checklist %s", item.Name, checklist.ID)
	}
	checklist.CheckItems = kept

	return nil
}

func findCheckItem(items []models.CheckItem, name string) int {
	for i, item := range items {
		if item.Name == name {
			return i
		}
	}
	return -1
}

func checkState(complete bool) string {
	if complete {
		return models.StateComplete
	}
	return models.StateIncomplete
}
