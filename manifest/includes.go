package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// ResolvedInclude is an include that has been loaded from disk.
type ResolvedInclude struct {
	Name     string
	Dir      string
	Manifest *Manifest
}

// ResolveIncludes loads every include, transitively, and returns them in
// load order: an include comes before the projects that include it, and
// siblings keep their declared order. A cycle is an error.
func (m *Manifest) ResolveIncludes() ([]ResolvedInclude, error) {
	var order []ResolvedInclude
	done := make(map[string]bool)
	var visiting []string

	var visit func(owner *Manifest) error
	visit = func(owner *Manifest) error {
		for _, inc := range owner.Includes {
			name := inc.label()
			dir := inc.Path
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(owner.Dir, dir)
			}
			dir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("include %q: invalid path %q: %w", name, inc.Path, err)
			}
			if done[dir] {
				continue
			}
			if slices.Contains(visiting, dir) {
				return fmt.Errorf("include cycle through %q at %s", name, dir)
			}
			if _, err := os.Stat(dir); err != nil {
				return fmt.Errorf("include %q not found at %s: %w", name, dir, err)
			}

			im, err := Load(dir)
			if err != nil {
				return fmt.Errorf("include %q: %w", name, err)
			}
			visiting = append(visiting, dir)
			if err := visit(im); err != nil {
				return err
			}
			visiting = visiting[:len(visiting)-1]

			done[dir] = true
			order = append(order, ResolvedInclude{Name: name, Dir: dir, Manifest: im})
		}
		return nil
	}

	visiting = append(visiting, m.Dir)
	if err := visit(m); err != nil {
		return nil, err
	}
	return order, nil
}

// AllScriptPaths returns the scripts of every include, in load order,
// followed by this project's own scripts.
func (m *Manifest) AllScriptPaths() ([]string, error) {
	includes, err := m.ResolveIncludes()
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, inc := range includes {
		paths = append(paths, inc.Manifest.ScriptPaths()...)
	}
	return append(paths, m.ScriptPaths()...), nil
}
