package markdown

import (
	"testing"

	"github.com/crfeliz/issue-trello-sync/lib/models"
	"github.com/stretchr/testify/assert"
)

func TestExtractChecklistItems(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected []models.ChecklistEntry
	}{
		{
			name:  "simple",
			input: "- [x] Write docs\n- [ ] Review\n",
			expected: []models.ChecklistEntry{
				{Label: "Write docs", Completed: true},
				{Label: "Review", Completed: false},
			},
		},
		{
			name:  "uppercase X is not complete",
			input: "- [X] Shout\n",
			expected: []models.ChecklistEntry{
				{Label: "Shout", Completed: false},
			},
		},
		{
			name:  "indented, trailing space and CRLF",
			input: "Intro\r\n  - [ ] Nested item   \r\n\t- [x] Tabbed\r\nOutro",
			expected: []models.ChecklistEntry{
				{Label: "Nested item", Completed: false},
				{Label: "Tabbed", Completed: true},
			},
		},
		{
			name:     "not checklists",
			input:    "* [ ] star bullet\n- [] no space\n-[x] no gap\ntext - [x] inline\n- [ ]\n",
			expected: nil,
		},
		{
			name:     "empty",
			input:    "",
			expected: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExtractChecklistItems(tc.input))
		})
	}
}

func TestRemoveChecklistBlocks(t *testing.T) {
	input := "Some prose.\n- [x] One\n- [ ] Two\nMore prose.\n- [ ] Three\n"
	expected := "Some prose.\n" + ChecklistPlaceholder + "\nMore prose.\n" + ChecklistPlaceholder + "\n"

	assert.Equal(t, expected, RemoveChecklistBlocks(input))
	assert.Equal(t, "nothing here", RemoveChecklistBlocks("nothing here"))
}

func TestEmptyBoxStaysInDescription(t *testing.T) {
	input := "Intro\n- [ ]\n- [x]   \nOutro\n"

	assert.Empty(t, ExtractChecklistItems(input))
	assert.Equal(t, input, RemoveChecklistBlocks(input))
	assert.NotContains(t, CleanDescriptionBody(input, "acme", "repo"), ChecklistPlaceholder)
}

func TestDecodeLabelLinks(t *testing.T) {
	input := "See https://github.com/acme/repo/labels/needs%20triage for details."
	assert.Equal(t, "See `needs triage` for details.", DecodeLabelLinks(input, "acme", "repo"))

	other := "https://github.com/other/repo/labels/bug"
	assert.Equal(t, other, DecodeLabelLinks(other, "acme", "repo"))

	broken := "https://github.com/acme/repo/labels/bad%zz"
	assert.Equal(t, broken, DecodeLabelLinks(broken, "acme", "repo"))

	inLink := "[label](https://github.com/acme/repo/labels/good%20first%20issue)"
	assert.Equal(t, "[label](`good first issue`)", DecodeLabelLinks(inLink, "acme", "repo"))

	mixedCase := "https://GitHub.com/Acme/Repo/labels/bug and https://github.com/acme/repo/labels/ui"
	assert.Equal(t, "`bug` and `ui`", DecodeLabelLinks(mixedCase, "acme", "repo"))
	assert.Equal(t, "`bug` and `ui`", DecodeLabelLinks(mixedCase, "ACME", "REPO"))
}

func TestNormalizeLineEndings(t *testing.T) {
	assert.Equal(t, "a\nb\n", NormalizeLineEndings("a\r\nb\r\n\r\n"))
	assert.Equal(t, "a\n", NormalizeLineEndings("a"))
	assert.Equal(t, "\n", NormalizeLineEndings(""))
}

func TestCleanDescriptionBody(t *testing.T) {
	input := "Fix https://github.com/acme/repo/labels/bug%2Fcrash\r\n- [ ] a\r\n- [x] b\r\nDone"
	expected := "Fix `bug/crash`\n" + ChecklistPlaceholder + "\nDone\n"
	assert.Equal(t, expected, CleanDescriptionBody(input, "acme", "repo"))
}
