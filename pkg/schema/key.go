package schema

import "strings"

// Key derivation for the flat value namespace.
//
// Every value in a saved form lives under a flat string key derived from the
// field's position in the schema tree. The same derivation runs in the step
// renderer, the progress calculator, the review summary and the submission
// sanitizer, and the backend's storage layer assumes it too — keys are
// compared by exact string equality across the whole stack. This file is the
// single implementation; do not re-derive keys anywhere else.

// Acronym abbreviates a title to the first letter of each word, uppercased.
// Words are maximal runs of ASCII letters; anything else separates them.
// "10th Standard" -> "TS". Empty or letter-free input yields "".
func Acronym(s string) string {
	var b strings.Builder
	inWord := false
	for _, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if isLetter && !inWord {
			b.WriteRune(upperASCII(r))
		}
		inWord = isLetter
	}
	return b.String()
}

// ToPascal concatenates the words of s with each first character uppercased.
// Words are maximal runs of ASCII letters and digits. "a-b_c" -> "ABC",
// "percentage secured" -> "PercentageSecured".
func ToPascal(s string) string {
	var b strings.Builder
	inWord := false
	for _, r := range s {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !isAlnum {
			inWord = false
			continue
		}
		if !inWord {
			b.WriteRune(upperASCII(r))
		} else {
			b.WriteRune(r)
		}
		inWord = true
	}
	return b.String()
}

// Slugify lowercases s and collapses runs of non-alphanumerics to single
// hyphens, trimming leading and trailing hyphens. Used for step URL segments.
func Slugify(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			r += 'a' - 'A'
			fallthrough
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	return b.String()
}

// LeafKey derives the key of a plain leaf: ancestor acronyms joined with the
// PascalCased field label. A branching field's own selection value is stored
// under the same shape of key, derived from its own label.
func LeafKey(parts []string, label string) string {
	return joinKey(parts, ToPascal(label))
}

// SelectionKey derives the ephemeral branch-selection map key for a branching
// field: ancestor acronyms plus the acronym of the field's own label. It is
// never persisted; the selected option itself is saved under LeafKey.
func SelectionKey(parts []string, label string) string {
	return joinKey(parts, Acronym(label))
}

// BranchLeafKey derives the key of a child leaf under a selected branch
// option. The option name is part of the key, so a child's identity changes
// when the selection changes; values saved under an abandoned option become
// orphaned rather than overwritten.
func BranchLeafKey(parts []string, parentLabel, option, childLabel string) string {
	segs := make([]string, 0, len(parts)+3)
	segs = append(segs, parts...)
	segs = append(segs, Acronym(parentLabel), ToPascal(option), ToPascal(childLabel))
	return strings.Join(segs, "_")
}

func joinKey(parts []string, last string) string {
	if len(parts) == 0 {
		return last
	}
	return strings.Join(parts, "_") + "_" + last
}

func upperASCII(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}
