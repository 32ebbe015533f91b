package schema

import "testing"

// One group "Personal Details" holding one required plain field and one
// required branching field with an Employed/Unemployed split.
func scenario() Structure {
	return Structure{{
		Title: "Personal Details",
		Fields: []Field{
			{Label: "Full Name", Type: TypeText, Required: true},
			employmentField(),
		},
	}}
}

func TestProgressEmptySnapshot(t *testing.T) {
	if got := Progress(scenario(), Values{}); got != 0 {
		t.Errorf("progress of empty snapshot = %d, want 0", got)
	}
}

func TestProgressUnemployedBranchCompletes(t *testing.T) {
	saved := Values{
		"PD_FullName":   "Jane",
		"PD_Employment": "Unemployed",
	}
	// FullName + the Employment selection; Unemployed has no required children.
	if got := Progress(scenario(), saved); got != 100 {
		t.Errorf("progress = %d, want 100", got)
	}
}

func TestProgressEmployedBranchAddsRequiredChild(t *testing.T) {
	saved := Values{
		"PD_FullName":   "Jane",
		"PD_Employment": "Employed",
	}
	// required = FullName, selection, Employer; filled = 2; round(200/3) = 67.
	if got := Progress(scenario(), saved); got != 67 {
		t.Errorf("progress = %d, want 67", got)
	}

	saved["PD_E_Employed_Employer"] = "Acme"
	if got := Progress(scenario(), saved); got != 100 {
		t.Errorf("progress with employer filled = %d, want 100", got)
	}
}

func TestProgressBranchIsolation(t *testing.T) {
	structure := Structure{{
		Title: "Work",
		Fields: []Field{{
			Label:   "Status",
			Type:    TypeEnum,
			Options: []string{"A", "B"},
			Branches: map[string][]Field{
				"A": {{Label: "One", Type: TypeText, Required: true}},
				"B": {
					{Label: "Two", Type: TypeText, Required: true},
					{Label: "Three", Type: TypeText, Required: true},
				},
			},
		}},
	}}

	withA := Values{"W_Status": "A", "W_S_A_One": "done"}
	withB := Values{"W_Status": "B"}
	if pa, pb := Progress(structure, withA), Progress(structure, withB); pa <= pb {
		t.Errorf("filled A branch (%d%%) should beat empty B branch (%d%%)", pa, pb)
	}

	// Switching A -> B must not let A's orphaned child count.
	switched := Values{"W_Status": "B", "W_S_A_One": "done"}
	if got := Progress(structure, switched); got != 0 {
		t.Errorf("progress after switch = %d, want 0 (B children empty, selection not required)", got)
	}
}

func TestProgressNoRequiredFields(t *testing.T) {
	structure := Structure{{
		Title:  "Optional Stuff",
		Fields: []Field{{Label: "Nickname", Type: TypeText}},
	}}
	if got := Progress(structure, Values{"OS_Nickname": "Stormy"}); got != 0 {
		t.Errorf("progress with zero required fields = %d, want 0", got)
	}
}

func TestProgressIdempotent(t *testing.T) {
	saved := Values{"PD_FullName": "Jane", "PD_Employment": "Employed"}
	first := Progress(scenario(), saved)
	second := Progress(scenario(), saved)
	if first != second {
		t.Errorf("two identical calls differ: %d vs %d", first, second)
	}

	// Merging a snapshot with itself changes nothing.
	merged := make(Values, len(saved))
	for k, v := range saved {
		merged[k] = v
	}
	for k, v := range saved {
		merged[k] = v
	}
	if got := Progress(scenario(), merged); got != first {
		t.Errorf("self-merged snapshot = %d, want %d", got, first)
	}
}

func TestProgressFillPredicate(t *testing.T) {
	structure := Structure{{
		Title: "Flags",
		Fields: []Field{
			{Label: "Agree", Type: TypeCheckbox, Required: true},
			{Label: "Count", Type: TypeNumber, Required: true},
		},
	}}

	// false and 0 are deliberate answers, so they count as filled.
	saved := Values{"F_Agree": false, "F_Count": float64(0)}
	if got := Progress(structure, saved); got != 100 {
		t.Errorf("progress with false/zero values = %d, want 100", got)
	}

	// Whitespace-only strings and nils do not.
	saved = Values{"F_Agree": "   ", "F_Count": nil}
	if got := Progress(structure, saved); got != 0 {
		t.Errorf("progress with blank values = %d, want 0", got)
	}
}
