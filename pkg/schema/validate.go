package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	numberPattern = regexp.MustCompile(`^-?\d*\.?\d+$`)
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ValidateField checks one value against one field's rules and returns a
// human-readable message, or "" when the value is acceptable. Checks run in
// priority order and the first failure wins: required, then length/range/
// numeric shape, then email format. Every non-required check treats an empty
// value as valid — an empty optional field never fails.
func ValidateField(f *Field, value any) string {
	if f.Required && !Filled(value) {
		return "This field is required."
	}

	s, isString := value.(string)

	if (f.Type == TypeText || f.Type == TypeTextarea) && f.CharLimit > 0 {
		if isString && len(s) > f.CharLimit {
			return fmt.Sprintf("Max %d characters.", f.CharLimit)
		}
	}

	if f.Type == TypeNumber {
		str := numericString(value)
		if str != "" {
			if !numberPattern.MatchString(str) {
				return "Please enter a valid number."
			}
			n, err := strconv.ParseFloat(str, 64)
			if err != nil {
				return "Please enter a valid number."
			}
			if f.Min != nil && n < *f.Min {
				return fmt.Sprintf("Minimum is %s.", formatBound(*f.Min))
			}
			if f.Max != nil && n > *f.Max {
				return fmt.Sprintf("Maximum is %s.", formatBound(*f.Max))
			}
		}
	}

	// Text fields whose label mentions "email" get format checking.
	if f.Type == TypeText && strings.Contains(strings.ToLower(f.Label), "email") {
		if isString && s != "" && !emailPattern.MatchString(s) {
			return "Enter a valid email address."
		}
	}

	return ""
}

// ValidateStep validates the active leaves of one step and returns the
// per-key error map. Keys absent from the map are valid.
func ValidateStep(step *Group, values Values, sel Selections) map[string]string {
	rootAcr := Acronym(step.Title)
	errs := make(map[string]string)
	for _, leaf := range ActiveLeaves(step, sel, []string{rootAcr}) {
		if msg := ValidateField(leaf.Field, values[leaf.Key]); msg != "" {
			errs[leaf.Key] = msg
		}
	}
	return errs
}

// SanitizeToActive filters a value map down to the keys of currently active
// leaves, dropping orphaned branch children before a payload leaves the
// session. Only keys actually present in values are carried over.
func SanitizeToActive(step *Group, values Values, sel Selections) Values {
	rootAcr := Acronym(step.Title)
	out := make(Values)
	for _, leaf := range ActiveLeaves(step, sel, []string{rootAcr}) {
		if v, ok := values[leaf.Key]; ok {
			out[leaf.Key] = v
		}
	}
	return out
}

func numericString(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	default:
		return ""
	}
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
