package wbs

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MergeReport describes the outcome of a fragment merge.
type MergeReport struct {
	// Root is the merged tree.
	Root *TaskNode

	// Fragments is the number of non-nil fragments merged.
	Fragments int

	// Mismatched lists the indexes of fragments whose root descriptor
	// differs from the first fragment's. Their children were still merged.
	Mismatched []int
}

// Merge combines fragments that share a project root into one tree.
// See MergeWithReport.
func Merge(fragments []*TaskNode) (*TaskNode, error) {
	report, err := MergeWithReport(fragments)
	if err != nil {
		return nil, err
	}
	return report.Root, nil
}

// MergeWithReport takes the root descriptor (id, title, level) from the
// first fragment and appends the children of every fragment in order.
// Fragments are not modified; the merged tree holds copies.
//
// Duplicate child IDs across fragments are kept as-is. Use DuplicateIDs to
// detect them. Returns ErrNoFragments when there is nothing to merge.
func MergeWithReport(fragments []*TaskNode) (*MergeReport, error) {
	var (
		root   *TaskNode
		report = &MergeReport{}
	)

	for i, frag := range fragments {
		if frag == nil {
			continue
		}
		report.Fragments++

		if root == nil {
			root = &TaskNode{
				ID:     frag.ID,
				Title:  frag.Title,
				Level:  frag.Level,
				Status: StatusPending,
			}
		} else if frag.ID != root.ID || frag.Title != root.Title || frag.Level != root.Level {
			report.Mismatched = append(report.Mismatched, i)
		}

		for _, child := range frag.Children {
			root.AddChild(child.Clone())
		}
	}

	if root == nil {
		return nil, ErrNoFragments
	}
	report.Root = root
	return report, nil
}

// DecodeFragment parses a JSON fragment.
func DecodeFragment(data []byte) (*TaskNode, error) {
	var node TaskNode
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decoding fragment: %w", err)
	}
	return &node, nil
}

// DecodeForest parses either a single JSON task object or an array of them.
func DecodeForest(data []byte) ([]*TaskNode, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		var roots []*TaskNode
		if err := json.Unmarshal(trimmed, &roots); err != nil {
			return nil, fmt.Errorf("decoding task list: %w", err)
		}
		return roots, nil
	}
	node, err := DecodeFragment(data)
	if err != nil {
		return nil, err
	}
	return []*TaskNode{node}, nil
}
