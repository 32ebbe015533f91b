package schema

import (
	"strings"
	"testing"
)

func fptr(f float64) *float64 { return &f }

func TestValidateFieldRequired(t *testing.T) {
	f := &Field{Label: "Full Name", Type: TypeText, Required: true}
	if msg := ValidateField(f, ""); msg == "" {
		t.Error("empty required field passed validation")
	}
	if msg := ValidateField(f, nil); msg == "" {
		t.Error("nil required field passed validation")
	}
	if msg := ValidateField(f, "Jane"); msg != "" {
		t.Errorf("filled required field rejected: %q", msg)
	}
}

func TestValidateFieldCharLimit(t *testing.T) {
	f := &Field{Label: "Bio", Type: TypeTextarea, CharLimit: 5}
	if msg := ValidateField(f, "123456"); msg == "" {
		t.Error("over-limit value passed validation")
	}
	if msg := ValidateField(f, "12345"); msg != "" {
		t.Errorf("at-limit value rejected: %q", msg)
	}
	if msg := ValidateField(f, ""); msg != "" {
		t.Errorf("empty optional value rejected: %q", msg)
	}
}

func TestValidateFieldNumber(t *testing.T) {
	f := &Field{Label: "Score", Type: TypeNumber, Min: fptr(5)}
	if msg := ValidateField(f, "3"); msg == "" || !strings.Contains(msg, "Minimum") {
		t.Errorf("below-min value got %q, want a minimum violation", msg)
	}
	if msg := ValidateField(f, "abc"); msg == "" {
		t.Error("non-numeric value passed validation")
	}
	if msg := ValidateField(f, "7.5"); msg != "" {
		t.Errorf("valid number rejected: %q", msg)
	}
	if msg := ValidateField(f, "-2.5"); msg == "" {
		t.Error("negative below-min value passed validation")
	}

	// An empty optional numeric field is always valid.
	opt := &Field{Label: "Score", Type: TypeNumber}
	if msg := ValidateField(opt, ""); msg != "" {
		t.Errorf("empty optional number rejected: %q", msg)
	}

	capped := &Field{Label: "Percent", Type: TypeNumber, Max: fptr(100)}
	if msg := ValidateField(capped, "101"); msg == "" || !strings.Contains(msg, "Maximum") {
		t.Errorf("above-max value got %q, want a maximum violation", msg)
	}
}

func TestValidateFieldEmail(t *testing.T) {
	f := &Field{Label: "Email Address", Type: TypeText}
	if msg := ValidateField(f, "not-an-email"); msg == "" {
		t.Error("malformed email passed validation")
	}
	if msg := ValidateField(f, "jane@example.com"); msg != "" {
		t.Errorf("valid email rejected: %q", msg)
	}
	if msg := ValidateField(f, ""); msg != "" {
		t.Errorf("empty optional email rejected: %q", msg)
	}

	// Only labels mentioning email opt in to format checking.
	plain := &Field{Label: "Username", Type: TypeText}
	if msg := ValidateField(plain, "not-an-email"); msg != "" {
		t.Errorf("plain text field got email validation: %q", msg)
	}
}

func TestValidateStepActiveLeavesOnly(t *testing.T) {
	step := personalDetails()
	sel := Selections{"PD_E": "Employed"}
	errs := ValidateStep(&step, Values{"PD_FullName": "Jane"}, sel)

	if _, ok := errs["PD_FullName"]; ok {
		t.Error("filled field flagged as invalid")
	}
	if _, ok := errs["PD_E_Employed_Employer"]; !ok {
		t.Errorf("empty required branched child not flagged: %v", errs)
	}

	// Without a selection the branched child is inactive and not validated.
	errs = ValidateStep(&step, Values{"PD_FullName": "Jane"}, nil)
	if _, ok := errs["PD_E_Employed_Employer"]; ok {
		t.Error("inactive branched child was validated")
	}
}

func TestSanitizeToActive(t *testing.T) {
	step := personalDetails()
	values := Values{
		"PD_FullName":              "Jane",
		"PD_E_Employed_Employer":   "Acme",
		"PD_E_Unemployed_Duration": "2y", // orphan from an abandoned branch
		"Unrelated":                "x",
	}

	out := SanitizeToActive(&step, values, Selections{"PD_E": "Employed"})
	if _, ok := out["PD_E_Unemployed_Duration"]; ok {
		t.Error("orphaned branch value survived sanitizing")
	}
	if _, ok := out["Unrelated"]; ok {
		t.Error("foreign key survived sanitizing")
	}
	if out["PD_E_Employed_Employer"] != "Acme" {
		t.Errorf("active branched value missing: %v", out)
	}
}
