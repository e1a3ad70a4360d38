package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/pdasim/internal/compiler"
	"github.com/aretw0/pdasim/pkg/domain"
	"gopkg.in/yaml.v3"
)

var extensions = []string{".json", ".yaml", ".yml"}

// ReadDefinition loads a JSON or YAML definition file and expands compact rules.
func ReadDefinition(path string) (*domain.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	def, err := compiler.NewParser().Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if def.Name == "" {
		def.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return def, nil
}

// WriteDefinition saves def as YAML when path ends in .yaml/.yml, JSON otherwise.
func WriteDefinition(path string, def domain.Definition) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(def)
	default:
		data, err = json.MarshalIndent(def, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal definition: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure directory: %w", err)
	}
	return writeAtomic(dir, path, data)
}

// Loader implements ports.DefinitionLoader over a directory of definition files.
// The ID of a definition is its file name without extension.
type Loader struct {
	Dir string
}

// NewLoader creates a Loader reading from dir.
func NewLoader(dir string) *Loader {
	return &Loader{Dir: dir}
}

// Load finds <id>.json, <id>.yaml or <id>.yml in the directory.
func (l *Loader) Load(ctx context.Context, id string) (*domain.Definition, error) {
	for _, ext := range extensions {
		path := filepath.Join(l.Dir, id+ext)
		if _, err := os.Stat(path); err == nil {
			return ReadDefinition(path)
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrDefinitionNotFound, id)
}

// List returns the IDs of every definition file, sorted.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}
	seen := map[string]bool{}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if !isDefinitionExt(ext) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ext)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func isDefinitionExt(ext string) bool {
	for _, e := range extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
