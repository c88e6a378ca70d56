// Package input reads outlines and fragments from disk and writes JSON
// results. The engine packages never touch the filesystem themselves.
package input

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/wbs/internal/wbs"
)

// MaxFileSize bounds any single input file.
const MaxFileSize = 16 << 20

var (
	// ErrNotFound is returned when an input file or directory is missing.
	ErrNotFound = errors.New("input not found")

	// ErrTooLarge is returned when an input file exceeds MaxFileSize.
	ErrTooLarge = errors.New("input file too large")
)

// Fragment is a decoded fragment and the file it came from.
type Fragment struct {
	Path string
	Node *wbs.TaskNode
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path) // #nosec G304 -- path is supplied by the operator
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, path)
	}
	return data, nil
}

// ReadOutline parses a numbered text outline file.
func ReadOutline(path string, opts ...wbs.ParseOption) ([]*wbs.TaskNode, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	roots, err := wbs.ParseOutlineText(string(data), opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return roots, nil
}

// ReadFragments decodes every *.json file directly inside dir, in lexical
// file name order. An existing directory without fragments yields an empty
// slice; merging that slice reports wbs.ErrNoFragments.
func ReadFragments(dir string) ([]Fragment, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
		}
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing fragments: %w", err)
	}

	frags := make([]Fragment, 0, len(paths))
	for _, p := range paths {
		data, err := readFile(p)
		if err != nil {
			return nil, err
		}
		node, err := wbs.DecodeFragment(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		frags = append(frags, Fragment{Path: p, Node: node})
	}
	return frags, nil
}

// Nodes returns the decoded roots of frags in order.
func Nodes(frags []Fragment) []*wbs.TaskNode {
	nodes := make([]*wbs.TaskNode, len(frags))
	for i, f := range frags {
		nodes[i] = f.Node
	}
	return nodes
}

// ReadTree loads a forest from path. Files ending in .json hold a task
// object or an array of them; anything else is read as an outline.
func ReadTree(path string, opts ...wbs.ParseOption) ([]*wbs.TaskNode, error) {
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return ReadOutline(path, opts...)
	}
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	roots, err := wbs.DecodeForest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return roots, nil
}

// WriteJSON writes v as indented JSON. The file is replaced atomically.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { // #nosec G306 -- output is meant to be shared
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", path, err)
	}
	return nil
}
