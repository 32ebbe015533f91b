package view

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stepform/stepform/pkg/schema"
)

func reviewStructure() schema.Structure {
	return schema.Structure{
		{
			Title: "Personal Details",
			Fields: []schema.Field{
				{Label: "Full Name", Type: schema.TypeText, Required: true},
				{
					Label:    "Employment",
					Type:     schema.TypeEnum,
					Required: true,
					Options:  []string{"Employed", "Student"},
					Branches: map[string][]schema.Field{
						"Employed": {{Label: "Employer", Type: schema.TypeText, Required: true}},
						"Student":  {{Label: "School", Type: schema.TypeText, Required: true}},
					},
				},
			},
		},
	}
}

func TestBuildNodesResolvesValuesAndErrors(t *testing.T) {
	structure := reviewStructure()
	values := schema.Values{
		"PD_FullName":            "Ada",
		"PD_Employment":          "Employed",
		"PD_E_Employed_Employer": "AE Ltd",
	}
	errs := map[string]string{"PD_FullName": "This field is required."}
	tree := schema.ActiveTree(&structure[0], values, []string{"PD"})
	nodes := BuildNodes(tree, values, errs, false)

	if len(nodes) != 3 {
		t.Fatalf("nodes = %d, want 3 (name, branch parent, employer)", len(nodes))
	}
	if nodes[0].Field.Value != "Ada" || nodes[0].Field.Error != "This field is required." {
		t.Fatalf("name field = %+v", nodes[0].Field)
	}
	if !nodes[1].Field.IsBranch || nodes[1].Field.Selected != "Employed" {
		t.Fatalf("branch parent = %+v", nodes[1].Field)
	}
	if nodes[2].Field.Key != "PD_E_Employed_Employer" || nodes[2].Field.Value != "AE Ltd" {
		t.Fatalf("branch child = %+v", nodes[2].Field)
	}
}

func TestBuildNodesPropagatesReadOnly(t *testing.T) {
	structure := reviewStructure()
	tree := schema.ActiveTree(&structure[0], schema.Values{}, []string{"PD"})
	for _, n := range BuildNodes(tree, schema.Values{}, nil, true) {
		if !n.IsSection && !n.Field.ReadOnly {
			t.Fatalf("field %s not read-only", n.Field.Key)
		}
	}
}

func TestBuildReviewShowsActiveBranchOnly(t *testing.T) {
	saved := schema.Values{
		"PD_FullName":            "Ada",
		"PD_Employment":          "Employed",
		"PD_E_Employed_Employer": "AE Ltd",
		// Orphan from a branch switched away from.
		"PD_E_Student_School": "Trinity",
	}
	sections := BuildReview(reviewStructure(), saved)
	if len(sections) != 1 {
		t.Fatalf("sections = %d, want 1", len(sections))
	}
	var labels []string
	for _, row := range sections[0].Rows {
		labels = append(labels, row.Label)
	}
	got := strings.Join(labels, ",")
	if got != "Full Name,Employment,Employer" {
		t.Fatalf("rows = %s", got)
	}
}

func TestBuildReviewInfersSelectionFromChildren(t *testing.T) {
	saved := schema.Values{"PD_E_Student_School": "Trinity"}
	sections := BuildReview(reviewStructure(), saved)
	rows := sections[0].Rows
	found := false
	for _, row := range rows {
		if row.Label == "School" && row.Value == "Trinity" {
			found = true
		}
	}
	if !found {
		t.Fatalf("inferred branch child missing from rows: %+v", rows)
	}
}

func TestBuildReviewStoredSelectionBeatsInference(t *testing.T) {
	// Child value points at Student, but the user explicitly picked Employed.
	saved := schema.Values{
		"PD_Employment":       "Employed",
		"PD_E_Student_School": "Trinity",
	}
	rows := BuildReview(reviewStructure(), saved)[0].Rows
	for _, row := range rows {
		if row.Label == "School" {
			t.Fatalf("abandoned branch child rendered: %+v", row)
		}
	}
}

func TestDisplayValue(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"hello", "hello"},
		{true, "Yes"},
		{false, "No"},
		{float64(42), "42"},
		{float64(3.5), "3.5"},
	}
	for _, tc := range cases {
		if got := displayValue(tc.in); got != tc.want {
			t.Errorf("displayValue(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRendererTemplatesParse(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var buf bytes.Buffer
	err = r.Step(&buf, &StepPage{
		AppName: "Stepform",
		Title:   "Personal Details",
		Steps:   []StepNav{{Title: "Personal Details", Slug: "personal-details", Current: true}},
		Percent: 50,
		Nodes: BuildNodes(
			schema.ActiveTree(&reviewStructure()[0], schema.Values{}, []string{"PD"}),
			schema.Values{}, nil, false),
	})
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !strings.Contains(buf.String(), "Personal Details") {
		t.Fatal("step page missing title")
	}

	buf.Reset()
	if err := r.Review(&buf, &ReviewPage{AppName: "Stepform"}); err != nil {
		t.Fatalf("Review: %v", err)
	}
	buf.Reset()
	if err := r.Login(&buf, &AuthPage{AppName: "Stepform"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	buf.Reset()
	if err := r.Register(&buf, &AuthPage{AppName: "Stepform"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
}
