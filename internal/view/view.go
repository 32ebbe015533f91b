// Package view renders the server-side HTML of the form application: auth
// pages, wizard steps, and the review summary. Rendering works off a
// view-model built from the schema package's active tree so that key
// derivation stays in exactly one place.
package view

import (
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/stepform/stepform/pkg/schema"
)

// FieldVM is one renderable field with its resolved value and error.
type FieldVM struct {
	Key         string
	Label       string
	Type        string
	Required    bool
	Description string
	Value       string
	Checked     bool
	Error       string
	Options     []string
	Selected    string
	CharLimit   int
	MediaType   string
	MaxSizeMB   int
	IsBranch    bool
	ReadOnly    bool
}

// NodeVM is one node of the renderable tree.
type NodeVM struct {
	IsSection bool
	Title     string
	Field     FieldVM
	Children  []NodeVM
}

// StepNav is one entry of the wizard step strip.
type StepNav struct {
	Title   string
	Slug    string
	Current bool
}

// StepPage is the data for one wizard step page.
type StepPage struct {
	AppName    string
	Title      string
	Steps      []StepNav
	Percent    int
	Nodes      []NodeVM
	ReadOnly   bool
	PrevSlug   string
	NextSlug   string
	SaveNotice string
}

// ReviewRow is one answered field on the review page.
type ReviewRow struct {
	Label string
	Key   string
	Value string
}

// ReviewSection groups review rows per step.
type ReviewSection struct {
	Title string
	Rows  []ReviewRow
}

// ReviewPage is the data for the review-and-submit page.
type ReviewPage struct {
	AppName     string
	Percent     int
	Sections    []ReviewSection
	Submitted   bool
	SubmittedAt string
	Errors      map[string]string
	Banner      string
}

// AuthPage is the data for the login and register pages.
type AuthPage struct {
	AppName string
	Error   string
}

// Renderer holds the parsed templates.
type Renderer struct {
	tmpl *template.Template
}

// New parses the built-in templates.
func New() (*Renderer, error) {
	t := template.New("stepform")
	var err error
	for name, text := range pageTemplates {
		if _, err = t.New(name).Parse(text); err != nil {
			return nil, fmt.Errorf("view: parse template %s: %w", name, err)
		}
	}
	return &Renderer{tmpl: t}, nil
}

// Step renders one wizard step page.
func (r *Renderer) Step(w io.Writer, data *StepPage) error {
	return r.tmpl.ExecuteTemplate(w, "step", data)
}

// Review renders the review-and-submit page.
func (r *Renderer) Review(w io.Writer, data *ReviewPage) error {
	return r.tmpl.ExecuteTemplate(w, "review", data)
}

// Login renders the login page.
func (r *Renderer) Login(w io.Writer, data *AuthPage) error {
	return r.tmpl.ExecuteTemplate(w, "login", data)
}

// Register renders the signup page.
func (r *Renderer) Register(w io.Writer, data *AuthPage) error {
	return r.tmpl.ExecuteTemplate(w, "register", data)
}

// BuildNodes converts the schema active tree to the renderable view-model,
// resolving each node's value and validation error.
func BuildNodes(nodes []schema.Node, values schema.Values, errs map[string]string, readOnly bool) []NodeVM {
	out := make([]NodeVM, 0, len(nodes))
	for _, n := range nodes {
		switch n.Kind {
		case schema.KindSection:
			out = append(out, NodeVM{
				IsSection: true,
				Title:     n.Title,
				Children:  BuildNodes(n.Children, values, errs, readOnly),
			})
		case schema.KindBranchParent:
			vm := fieldVM(n.Key, n.Field, values, errs, readOnly)
			vm.IsBranch = true
			vm.Selected = vm.Value
			out = append(out, NodeVM{Field: vm})
		default:
			out = append(out, NodeVM{Field: fieldVM(n.Key, n.Field, values, errs, readOnly)})
		}
	}
	return out
}

func fieldVM(key string, f *schema.Field, values schema.Values, errs map[string]string, readOnly bool) FieldVM {
	vm := FieldVM{
		Key:         key,
		Label:       f.Label,
		Type:        string(f.Type),
		Required:    f.Required,
		Description: f.Description,
		Value:       displayValue(values[key]),
		Error:       errs[key],
		Options:     f.Options,
		CharLimit:   f.CharLimit,
		MediaType:   strings.ToUpper(f.MediaType),
		MaxSizeMB:   f.MaxSize,
		ReadOnly:    readOnly,
	}
	if f.Type == schema.TypeCheckbox {
		vm.Checked = values[key] == true || values[key] == "true"
	}
	if f.Type == schema.TypeEnum {
		vm.Selected = vm.Value
	}
	return vm
}

// BuildReview assembles the review summary from the canonical saved snapshot:
// per step, every active leaf plus every branching field's selection, in
// schema order. Selections are re-inferred from the snapshot itself, so the
// page is derived purely from server state.
func BuildReview(structure schema.Structure, saved schema.Values) []ReviewSection {
	sections := make([]ReviewSection, 0, len(structure))
	for i := range structure {
		root := &structure[i]
		parts := []string{schema.Acronym(root.Title)}
		sel := schema.InferSelections(root, saved, parts)
		storedSelections(root, saved, parts, sel)

		var rows []ReviewRow
		appendReviewRows(root, saved, sel, parts, &rows)
		sections = append(sections, ReviewSection{Title: root.Title, Rows: rows})
	}
	return sections
}

func storedSelections(node *schema.Group, saved schema.Values, parts []string, sel schema.Selections) {
	for i := range node.Fields {
		f := &node.Fields[i]
		if !f.Branching() {
			continue
		}
		if opt, _ := saved[schema.LeafKey(parts, f.Label)].(string); opt != "" {
			if _, ok := f.Branches[opt]; ok {
				sel[schema.SelectionKey(parts, f.Label)] = opt
			}
		}
	}
	for i := range node.SubGroups {
		sg := &node.SubGroups[i]
		storedSelections(sg, saved, append(parts, schema.Acronym(sg.Title)), sel)
	}
}

func appendReviewRows(node *schema.Group, saved schema.Values, sel schema.Selections, parts []string, rows *[]ReviewRow) {
	for i := range node.Fields {
		f := &node.Fields[i]
		if f.Branching() {
			parentKey := schema.LeafKey(parts, f.Label)
			*rows = append(*rows, ReviewRow{Label: f.Label, Key: parentKey, Value: displayValue(saved[parentKey])})
			opt := sel[schema.SelectionKey(parts, f.Label)]
			for _, bf := range f.Branches[opt] {
				key := schema.BranchLeafKey(parts, f.Label, opt, bf.Label)
				*rows = append(*rows, ReviewRow{Label: bf.Label, Key: key, Value: displayValue(saved[key])})
			}
			continue
		}
		key := schema.LeafKey(parts, f.Label)
		*rows = append(*rows, ReviewRow{Label: f.Label, Key: key, Value: displayValue(saved[key])})
	}
	for i := range node.SubGroups {
		sg := &node.SubGroups[i]
		appendReviewRows(sg, saved, sel, append(parts, schema.Acronym(sg.Title)), rows)
	}
}

func displayValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
