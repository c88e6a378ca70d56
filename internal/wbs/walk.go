package wbs

// Walk visits every node in pre-order. parent is nil for roots.
// Returning false from fn skips the node's subtree.
func Walk(roots []*TaskNode, fn func(n, parent *TaskNode) bool) {
	for _, r := range roots {
		walk(r, nil, fn)
	}
}

func walk(n, parent *TaskNode, fn func(n, parent *TaskNode) bool) {
	if !fn(n, parent) {
		return
	}
	for _, c := range n.Children {
		walk(c, n, fn)
	}
}

// WalkPostOrder visits children before their parent.
func WalkPostOrder(roots []*TaskNode, fn func(n *TaskNode)) {
	for _, r := range roots {
		walkPost(r, fn)
	}
}

func walkPost(n *TaskNode, fn func(n *TaskNode)) {
	for _, c := range n.Children {
		walkPost(c, fn)
	}
	fn(n)
}

// Flatten returns all nodes in pre-order.
func Flatten(roots []*TaskNode) []*TaskNode {
	var out []*TaskNode
	Walk(roots, func(n, _ *TaskNode) bool {
		out = append(out, n)
		return true
	})
	return out
}

// Find returns the first node with the given ID in pre-order, or nil.
func Find(roots []*TaskNode, id string) *TaskNode {
	var found *TaskNode
	Walk(roots, func(n, _ *TaskNode) bool {
		if found != nil {
			return false
		}
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Count returns the number of nodes in the forest.
func Count(roots []*TaskNode) int {
	total := 0
	Walk(roots, func(_, _ *TaskNode) bool {
		total++
		return true
	})
	return total
}

// DuplicateIDs returns IDs that occur more than once, in order of their
// second occurrence.
func DuplicateIDs(roots []*TaskNode) []string {
	seen := make(map[string]int)
	var dups []string
	Walk(roots, func(n, _ *TaskNode) bool {
		seen[n.ID]++
		if seen[n.ID] == 2 {
			dups = append(dups, n.ID)
		}
		return true
	})
	return dups
}

// CloneForest deep-copies every root.
func CloneForest(roots []*TaskNode) []*TaskNode {
	if roots == nil {
		return nil
	}
	out := make([]*TaskNode, len(roots))
	for i, r := range roots {
		out[i] = r.Clone()
	}
	return out
}
