package schema

import "testing"

func TestAcronym(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"10th Standard", "TS"},
		{"Personal Details", "PD"},
		{"Employment", "E"},
		{"", ""},
		{"___", ""},
		{"1234", ""},
		{"one", "O"},
		{"a b c", "ABC"},
		{"already-UPPER case", "AUC"},
	}
	for _, c := range cases {
		if got := Acronym(c.in); got != c.want {
			t.Errorf("Acronym(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestToPascal(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"percentage secured", "PercentageSecured"},
		{"a-b_c", "ABC"},
		{"Full Name", "FullName"},
		{"10th standard", "10thStandard"},
		{"", ""},
		{"  ", ""},
		{"employer", "Employer"},
		{"keepCase words", "KeepCaseWords"},
	}
	for _, c := range cases {
		if got := ToPascal(c.in); got != c.want {
			t.Errorf("ToPascal(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Personal Details", "personal-details"},
		{"  Odd -- Title!! ", "odd-title"},
		{"UPPER", "upper"},
		{"", ""},
		{"---", ""},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestKeyDerivation(t *testing.T) {
	parts := []string{"PD"}

	if got := LeafKey(parts, "Full Name"); got != "PD_FullName" {
		t.Errorf("LeafKey = %q, want PD_FullName", got)
	}
	if got := LeafKey(nil, "Full Name"); got != "FullName" {
		t.Errorf("LeafKey with no path = %q, want FullName", got)
	}
	if got := SelectionKey(parts, "Employment"); got != "PD_E" {
		t.Errorf("SelectionKey = %q, want PD_E", got)
	}
	if got := BranchLeafKey(parts, "Employment", "Employed", "Employer"); got != "PD_E_Employed_Employer" {
		t.Errorf("BranchLeafKey = %q, want PD_E_Employed_Employer", got)
	}
}
