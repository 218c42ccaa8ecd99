package models

import (
	"github.com/google/go-github/v62/github"
)

// Reserved project field names.
const (
	StatusField    = "Status"
	TitleField     = "Title"
	MilestoneField = "Milestone"
	LinkedPRsField = "Linked pull requests"
)

// ExtendedGithubIssue is a GitHub issue joined with the custom field values
// it carries on the project board. Attributes is nil when the issue is not
// on the board.
type ExtendedGithubIssue struct {
	github.Issue
	Attributes *ProjectAttributes `json:"attributes,omitempty"`
}

// IsTracked reports whether the issue takes part in reconciliation.
func (i ExtendedGithubIssue) IsTracked() bool {
	return !i.IsPullRequest() && i.Attributes != nil && i.Attributes.Status() != ""
}

// LabelNames returns the names of the issue's labels in GitHub order.
func (i ExtendedGithubIssue) LabelNames() []string {
	names := make([]string, 0, len(i.Labels))
	for _, l := range i.Labels {
		if l.GetName() != "" {
			names = append(names, l.GetName())
		}
	}
	return names
}

// AttributeKind tags which member of AttributeValue is set.
type AttributeKind int

const (
	AttributeUnknown AttributeKind = iota
	AttributeText
	AttributeSingleSelect
	AttributeNumber
	AttributeMilestone
	AttributeLinkedPullRequests
)

func (k AttributeKind) String() string {
	switch k {
	case AttributeText:
		return "text"
	case AttributeSingleSelect:
		return "single-select"
	case AttributeNumber:
		return "number"
	case AttributeMilestone:
		return "milestone"
	case AttributeLinkedPullRequests:
		return "linked-pull-requests"
	default:
		return "unknown"
	}
}

// MarshalText lets the debug dump show kinds by name.
func (k AttributeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *AttributeKind) UnmarshalText(text []byte) error {
	for c := AttributeUnknown; c <= AttributeLinkedPullRequests; c++ {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	*k = AttributeUnknown
	return nil
}

// Milestone is the project board's view of a milestone.
type Milestone struct {
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Number       int    `json:"number"`
	DueOn        string `json:"dueOn,omitempty"`
	ResourcePath string `json:"resourcePath"`
}

// LinkedPullRequest is one entry of the "Linked pull requests" field.
type LinkedPullRequest struct {
	Number    int    `json:"number"`
	Permalink string `json:"permalink"`
	Title     string `json:"title"`
}

// AttributeValue is a single project field value. Text carries both text
// and single-select values.
type AttributeValue struct {
	Kind         AttributeKind       `json:"kind"`
	Text         string              `json:"text,omitempty"`
	Number       float64             `json:"number,omitempty"`
	Milestone    *Milestone          `json:"milestone,omitempty"`
	PullRequests []LinkedPullRequest `json:"pullRequests,omitempty"`
}

// IsScalar reports whether the value renders as plain text.
func (v AttributeValue) IsScalar() bool {
	switch v.Kind {
	case AttributeText, AttributeSingleSelect, AttributeNumber:
		return true
	}
	return false
}

// ProjectField is a named field value.
type ProjectField struct {
	Name  string         `json:"name"`
	Value AttributeValue `json:"value"`
}

// ProjectAttributes holds an issue's project fields in the order GitHub
// returned them.
type ProjectAttributes struct {
	Fields []ProjectField `json:"fields"`
}

// Set stores a field value. A field that is already present keeps its
// position.
func (a *ProjectAttributes) Set(name string, value AttributeValue) {
	for i := range a.Fields {
		if a.Fields[i].Name == name {
			a.Fields[i].Value = value
			return
		}
	}
	a.Fields = append(a.Fields, ProjectField{Name: name, Value: value})
}

// Get returns the named field value.
func (a *ProjectAttributes) Get(name string) (AttributeValue, bool) {
	if a == nil {
		return AttributeValue{}, false
	}
	for _, f := range a.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return AttributeValue{}, false
}

// Status is the name of the column the issue sits in.
func (a *ProjectAttributes) Status() string {
	v, ok := a.Get(StatusField)
	if !ok || !v.IsScalar() {
		return ""
	}
	return v.Text
}

// Milestone returns the milestone field, if set.
func (a *ProjectAttributes) Milestone() *Milestone {
	v, ok := a.Get(MilestoneField)
	if !ok || v.Kind != AttributeMilestone {
		return nil
	}
	return v.Milestone
}

// LinkedPullRequest returns the first linked pull request, if any.
func (a *ProjectAttributes) LinkedPullRequest() *LinkedPullRequest {
	v, ok := a.Get(LinkedPRsField)
	if !ok || v.Kind != AttributeLinkedPullRequests || len(v.PullRequests) == 0 {
		return nil
	}
	return &v.PullRequests[0]
}

// ProjectBoard maps issue numbers to their project fields.
type ProjectBoard map[int]*ProjectAttributes
