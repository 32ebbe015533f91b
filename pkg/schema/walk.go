package schema

import "strings"

// Leaf is one active field paired with its flat key.
type Leaf struct {
	Key   string
	Field *Field
}

// Selections maps a branching field's SelectionKey to its currently selected
// option name. It is derived state, never persisted: the selected option
// itself lives in the value snapshot under the field's plain leaf key.
type Selections map[string]string

// ActiveLeaves enumerates the active leaves of a schema node in render order:
// depth-first, fields before subgroups. Plain fields emit one leaf under
// their plain key. Branching fields emit the selected option's children under
// branched keys, or nothing when no valid selection exists; the branching
// field's own selection value is not a leaf here (callers render and count it
// via its parent key, see ActiveTree and Progress).
func ActiveLeaves(node *Group, sel Selections, parts []string) []Leaf {
	var out []Leaf
	walkActive(node, sel, parts, &out)
	return out
}

func walkActive(node *Group, sel Selections, parts []string, out *[]Leaf) {
	for i := range node.Fields {
		f := &node.Fields[i]
		if f.Branching() {
			opt := sel[SelectionKey(parts, f.Label)]
			children, ok := f.Branches[opt]
			if opt == "" || !ok {
				continue
			}
			for j := range children {
				*out = append(*out, Leaf{
					Key:   BranchLeafKey(parts, f.Label, opt, children[j].Label),
					Field: &children[j],
				})
			}
			continue
		}
		*out = append(*out, Leaf{Key: LeafKey(parts, f.Label), Field: f})
	}
	for i := range node.SubGroups {
		sg := &node.SubGroups[i]
		walkActive(sg, sel, append(parts, Acronym(sg.Title)), out)
	}
}

// NodeKind discriminates ActiveTree nodes.
type NodeKind int

// ActiveTree node kinds.
const (
	KindLeaf NodeKind = iota
	KindBranchParent
	KindSection
)

// Node is one entry of the renderable active tree. Leaves carry Key and
// Field; branch parents additionally expose the parent's value key so the
// selection itself can be rendered and validated; sections carry a title and
// children.
type Node struct {
	Kind      NodeKind
	Key       string
	Field     *Field
	ParentKey string
	Title     string
	Children  []Node
}

// ActiveTree builds the renderable tree for one schema node given the current
// working values: every plain field as a leaf, every branching field as a
// branch-parent followed by the selected option's children (selection read
// from values under the parent's plain key), and every subgroup as a section.
func ActiveTree(node *Group, values Values, parts []string) []Node {
	var out []Node
	for i := range node.Fields {
		f := &node.Fields[i]
		if f.Branching() {
			parentKey := LeafKey(parts, f.Label)
			out = append(out, Node{Kind: KindBranchParent, Key: parentKey, ParentKey: parentKey, Field: f})
			opt, _ := values[parentKey].(string)
			children, ok := f.Branches[opt]
			if opt == "" || !ok {
				continue
			}
			for j := range children {
				out = append(out, Node{
					Kind:  KindLeaf,
					Key:   BranchLeafKey(parts, f.Label, opt, children[j].Label),
					Field: &children[j],
				})
			}
			continue
		}
		out = append(out, Node{Kind: KindLeaf, Key: LeafKey(parts, f.Label), Field: f})
	}
	for i := range node.SubGroups {
		sg := &node.SubGroups[i]
		out = append(out, Node{
			Kind:     KindSection,
			Title:    sg.Title,
			Children: ActiveTree(sg, values, append(parts, Acronym(sg.Title))),
		})
	}
	return out
}

// Step describes one wizard step derived from a root group.
type Step struct {
	Title   string
	Slug    string
	RootAcr string
}

// Steps derives the wizard step sequence from the root groups.
func Steps(structure Structure) []Step {
	out := make([]Step, len(structure))
	for i := range structure {
		title := structure[i].Title
		out[i] = Step{Title: title, Slug: Slugify(title), RootAcr: Acronym(title)}
	}
	return out
}

// FilterForStep keeps only the values belonging to one step: keys equal to
// the step's root acronym or carrying it as a "<acr>_" prefix. An empty
// acronym keeps everything.
func FilterForStep(saved Values, rootAcr string) Values {
	out := make(Values, len(saved))
	prefix := ""
	if rootAcr != "" {
		prefix = rootAcr + "_"
	}
	for k, v := range saved {
		if prefix == "" || k == rootAcr || strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out
}

// FieldByKey resolves a flat key back to its field definition, searching plain
// leaves and the branched children of every option. Returns nil when no field
// in the structure derives that key.
func FieldByKey(structure Structure, key string) *Field {
	var found *Field
	var walk func(node *Group, parts []string)
	walk = func(node *Group, parts []string) {
		if found != nil {
			return
		}
		for i := range node.Fields {
			f := &node.Fields[i]
			if f.Branching() {
				if LeafKey(parts, f.Label) == key {
					found = f
					return
				}
				for _, opt := range f.BranchOptions() {
					children := f.Branches[opt]
					for j := range children {
						if BranchLeafKey(parts, f.Label, opt, children[j].Label) == key {
							found = &children[j]
							return
						}
					}
				}
				continue
			}
			if LeafKey(parts, f.Label) == key {
				found = f
				return
			}
		}
		for i := range node.SubGroups {
			sg := &node.SubGroups[i]
			walk(sg, append(parts, Acronym(sg.Title)))
		}
	}
	for i := range structure {
		walk(&structure[i], []string{Acronym(structure[i].Title)})
		if found != nil {
			return found
		}
	}
	return nil
}

// AllLeafKeys derives the static key universe of the whole structure: every
// plain leaf plus every branched child leaf across all options, regardless of
// selection. Used where the full set of possibly-populated keys is needed,
// e.g. the review summary.
func AllLeafKeys(structure Structure) []string {
	var out []string
	var walk func(node *Group, parts []string)
	walk = func(node *Group, parts []string) {
		for i := range node.Fields {
			f := &node.Fields[i]
			if f.Branching() {
				for _, opt := range f.BranchOptions() {
					for _, bf := range f.Branches[opt] {
						out = append(out, BranchLeafKey(parts, f.Label, opt, bf.Label))
					}
				}
				continue
			}
			out = append(out, LeafKey(parts, f.Label))
		}
		for i := range node.SubGroups {
			sg := &node.SubGroups[i]
			walk(sg, append(parts, Acronym(sg.Title)))
		}
	}
	for i := range structure {
		walk(&structure[i], []string{Acronym(structure[i].Title)})
	}
	return out
}
