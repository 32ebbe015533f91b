package schema

import "math"

// Progress computes the whole-form completion percentage over a saved-data
// snapshot. It walks every root group (all steps, not just the one on
// screen) and counts required fields against filled ones:
//
//   - a required plain field counts once under its plain key;
//   - a required branching field counts once for its own selection value,
//     under the same plain key shape;
//   - for any branching field whose selection is present in the snapshot,
//     each required child of the selected option counts under its branched
//     key. Children of unselected options never count, so values orphaned by
//     a selection change cannot inflate the result.
//
// The result depends only on the structure and snapshot contents, never on
// map iteration order, and is recomputed from scratch on every call because a
// selection change alters which keys are required. Returns 0 when nothing is
// required.
func Progress(structure Structure, saved Values) int {
	required, filled := 0, 0

	var walk func(node *Group, parts []string)
	walk = func(node *Group, parts []string) {
		for i := range node.Fields {
			f := &node.Fields[i]
			key := LeafKey(parts, f.Label)

			if f.Required {
				required++
				if Filled(saved[key]) {
					filled++
				}
			}
			if !f.Branching() {
				continue
			}
			opt, _ := saved[key].(string)
			children, ok := f.Branches[opt]
			if opt == "" || !ok {
				continue
			}
			for _, bf := range children {
				if !bf.Required {
					continue
				}
				required++
				if Filled(saved[BranchLeafKey(parts, f.Label, opt, bf.Label)]) {
					filled++
				}
			}
		}
		for i := range node.SubGroups {
			sg := &node.SubGroups[i]
			walk(sg, append(parts, Acronym(sg.Title)))
		}
	}

	for i := range structure {
		walk(&structure[i], []string{Acronym(structure[i].Title)})
	}

	if required == 0 {
		return 0
	}
	return int(math.Round(100 * float64(filled) / float64(required)))
}
