// Package catalog loads the pre-authored studies.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/park285/chess-audio-guide/internal/domain"
	"github.com/park285/chess-audio-guide/internal/rules"
	yaml "gopkg.in/yaml.v3"
)

//go:embed studies.yaml
var defaultFiles embed.FS

var ErrStudyNotFound = errors.New("study not found")

type file struct {
	Studies []domain.Study `yaml:"studies"`
}

// Catalog is immutable after New.
type Catalog struct {
	order []string
	byID  map[string]domain.Study
}

// New loads the embedded studies, then every *.yaml/*.yml in dir. A study in
// dir replaces an embedded one with the same id.
func New(dir string) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]domain.Study)}

	raw, err := fs.ReadFile(defaultFiles, "studies.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded studies: %w", err)
	}
	if err := c.add("studies.yaml", raw, false); err != nil {
		return nil, err
	}

	if strings.TrimSpace(dir) != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read study dir: %w", err)
		}
		var names []string
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			b, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", name, err)
			}
			if err := c.add(name, b, true); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

func (c *Catalog) add(source string, raw []byte, override bool) error {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse %s: %w", source, err)
	}
	seen := make(map[string]struct{})
	for _, st := range f.Studies {
		st.ID = strings.TrimSpace(st.ID)
		if st.ID == "" {
			return fmt.Errorf("%s: study without id", source)
		}
		if _, dup := seen[st.ID]; dup {
			return fmt.Errorf("%s: duplicate study id %q", source, st.ID)
		}
		seen[st.ID] = struct{}{}
		if _, exists := c.byID[st.ID]; exists && !override {
			return fmt.Errorf("%s: duplicate study id %q", source, st.ID)
		}
		if strings.TrimSpace(st.StartFEN) == "" {
			st.StartFEN = domain.StartFEN
		}
		if err := validate(st); err != nil {
			return fmt.Errorf("%s: %w", source, err)
		}
		if _, exists := c.byID[st.ID]; !exists {
			c.order = append(c.order, st.ID)
		}
		c.byID[st.ID] = st
	}
	return nil
}

// validate replays the study so a broken move surfaces at startup.
func validate(st domain.Study) error {
	if len(st.Moves) == 0 {
		return fmt.Errorf("study %q has no moves", st.ID)
	}
	board, err := rules.NewBoard(st.StartFEN)
	if err != nil {
		return fmt.Errorf("study %q: %w", st.ID, err)
	}
	for i, mv := range st.Moves {
		if _, err := board.Apply(mv.Spec); err != nil {
			return fmt.Errorf("study %q move %d: %w", st.ID, i+1, err)
		}
	}
	return nil
}

func (c *Catalog) Get(id string) (domain.Study, error) {
	st, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return domain.Study{}, fmt.Errorf("%w: %s", ErrStudyNotFound, id)
	}
	return st, nil
}

// List returns studies in load order.
func (c *Catalog) List() []domain.Study {
	out := make([]domain.Study, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}
