// Package schema implements the schema-driven form core: the data model for
// nested form definitions, the flat-key derivation shared by every consumer
// of saved values, traversal of the currently active fields under a set of
// branch selections, completion progress, and per-field validation.
//
// The schema itself is owned by the backend and fetched read-only; this
// package never mutates it.
package schema

import (
	"encoding/json"
	"sort"
	"strings"
)

// FieldType identifies how a field is rendered and validated.
type FieldType string

// Field types understood by the renderer and validator.
const (
	TypeText     FieldType = "text"
	TypeTextarea FieldType = "textarea"
	TypeEnum     FieldType = "enum"
	TypeCheckbox FieldType = "checkbox"
	TypeMedia    FieldType = "media"
	TypeNumber   FieldType = "number"
)

// Field is a single form field. A field with a non-empty Branches map is a
// branching field: its own value is the selected option name (stored under
// its plain leaf key), and the selected option contributes an ordered set of
// follow-up child fields. Children are always plain leaves.
type Field struct {
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Description string    `json:"description,omitempty"`

	// CharLimit caps text/textarea length when > 0.
	CharLimit int `json:"charLimit,omitempty"`

	// Min and Max bound number fields when set.
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`

	// MediaType and MaxSize (MB) constrain media fields.
	MediaType string `json:"mediaType,omitempty"`
	MaxSize   int    `json:"maxSize,omitempty"`

	// Options lists enum choices in declared order. For branching fields it
	// also fixes the option iteration order.
	Options []string `json:"options,omitempty"`

	// Branches maps option name to that option's child fields.
	Branches map[string][]Field `json:"branches,omitempty"`
}

// Branching reports whether the field has conditional children.
func (f *Field) Branching() bool {
	return len(f.Branches) > 0
}

// BranchOptions returns the field's branch option names in deterministic
// order: declared Options order first, then any branch keys missing from
// Options in sorted order. Go maps have no iteration order, so every walk
// over Branches must go through this.
func (f *Field) BranchOptions() []string {
	if len(f.Branches) == 0 {
		return nil
	}
	out := make([]string, 0, len(f.Branches))
	seen := make(map[string]bool, len(f.Branches))
	for _, opt := range f.Options {
		if _, ok := f.Branches[opt]; ok && !seen[opt] {
			out = append(out, opt)
			seen[opt] = true
		}
	}
	rest := make([]string, 0, len(f.Branches))
	for opt := range f.Branches {
		if !seen[opt] {
			rest = append(rest, opt)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// Group is one node of the schema tree: a titled set of fields plus nested
// subgroups. Order of fields and subgroups is significant.
type Group struct {
	Title     string  `json:"title"`
	Fields    []Field `json:"fields"`
	SubGroups []Group `json:"subGroups,omitempty"`
}

// Structure is the full form definition: an ordered sequence of root groups,
// each rendered as one wizard step.
type Structure []Group

// ParseStructure decodes a form structure from backend JSON.
func ParseStructure(data []byte) (Structure, error) {
	var s Structure
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// Values is a saved-data snapshot: flat key to scalar value. Values decoded
// from backend JSON are string, bool or float64. A key present here is only
// meaningful while it is active under the current branch selections; orphaned
// keys are ignored, not purged.
type Values map[string]any

// Filled reports whether v counts as a filled value: defined, non-nil, and
// not an empty or whitespace-only string. false and 0 are filled.
func Filled(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}
