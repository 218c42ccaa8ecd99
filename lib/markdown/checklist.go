// Package markdown turns GitHub issue bodies into Trello card content.
package markdown

import (
	"regexp"
	"strings"

	"github.com/crfeliz/issue-trello-sync/lib/models"
)

// ChecklistPlaceholder replaces task lists in card descriptions; the items
// live in the card's checklist instead.
const ChecklistPlaceholder = "_(checklist moved to the card's checklist)_"

// checklistLineRegex matches a single task-list line with some text. Only
// a lowercase x marks the item complete.
var checklistLineRegex = regexp.MustCompile(`^[ \t]*- \[([ xX])\][ \t]+(\S.*)$`)

// ExtractChecklistItems returns the task-list entries of md in order of
// appearance. Boxes without text are not entries.
func ExtractChecklistItems(md string) []models.ChecklistEntry {
	var entries []models.ChecklistEntry
	for _, line := range splitLines(md) {
		m := checklistLineRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		label := strings.TrimRight(m[2], " \t")
		entries = append(entries, models.ChecklistEntry{
			Label:     label,
			Completed: m[1] == "x",
		})
	}
	return entries
}

// RemoveChecklistBlocks collapses each run of consecutive task-list lines
// into a single placeholder line.
func RemoveChecklistBlocks(md string) string {
	lines := strings.Split(md, "\n")
	out := make([]string, 0, len(lines))
	inBlock := false
	for _, line := range lines {
		if checklistLineRegex.MatchString(strings.TrimSuffix(line, "\r")) {
			if !inBlock {
				out = append(out, ChecklistPlaceholder)
				inBlock = true
			}
			continue
		}
		inBlock = false
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func splitLines(md string) []string {
	lines := strings.Split(md, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
