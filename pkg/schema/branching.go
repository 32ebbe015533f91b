package schema

// InferSelections reconstructs the branch-selection map for a schema node by
// scanning which option's children carry values. A child matches when its key
// is present with anything but the empty string; an explicit null still marks
// the branch as visited. For each branching
// field the options are checked in BranchOptions order and the first option
// with any filled child wins; saved snapshots can hold orphaned values for
// more than one option after a selection change, and first-match keeps the
// behavior deterministic. A branching field with no matching children gets no
// entry.
//
// Callers that already have the selection stored under the field's plain leaf
// key should prefer it; inference is the fallback for snapshots saved before
// the selection value itself was persisted.
func InferSelections(node *Group, values Values, parts []string) Selections {
	inferred := make(Selections)
	inferInto(node, values, parts, inferred)
	return inferred
}

func inferInto(node *Group, values Values, parts []string, inferred Selections) {
	for i := range node.Fields {
		f := &node.Fields[i]
		if !f.Branching() {
			continue
		}
		for _, opt := range f.BranchOptions() {
			if !branchHasValue(f, opt, values, parts) {
				continue
			}
			inferred[SelectionKey(parts, f.Label)] = opt
			break
		}
	}
	for i := range node.SubGroups {
		sg := &node.SubGroups[i]
		inferInto(sg, values, append(parts, Acronym(sg.Title)), inferred)
	}
}

func branchHasValue(f *Field, opt string, values Values, parts []string) bool {
	for _, bf := range f.Branches[opt] {
		v, ok := values[BranchLeafKey(parts, f.Label, opt, bf.Label)]
		if !ok {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			continue
		}
		return true
	}
	return false
}
