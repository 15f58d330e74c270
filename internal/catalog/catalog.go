package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/relicforge/relic-server-go/internal/effects"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

// File is the on-disk layout of a catalog document.
type File struct {
	Version int     `yaml:"version"`
	Effects []Entry `yaml:"effects"`
}

// Entry is one effect definition in a catalog file.
type Entry struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Source      string          `yaml:"source"`
	Description string          `yaml:"description"`
	Patches     []effects.Patch `yaml:"patches"`
}

// Definition converts the entry into an engine definition.
func (e Entry) Definition() effects.Definition {
	return effects.Definition{
		ID:          strings.TrimSpace(e.ID),
		Name:        e.Name,
		Source:      e.Source,
		Description: e.Description,
		Patches:     e.Patches,
	}
}

// Default returns the definitions bundled with the binary.
func Default() ([]effects.Definition, error) {
	return Parse(defaultCatalog, "default.yaml")
}

// Parse decodes and validates a catalog document. origin names it in errors.
func Parse(data []byte, origin string) ([]effects.Definition, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", origin, err)
	}
	if err := validate(&file); err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", origin, err)
	}

	defs := make([]effects.Definition, 0, len(file.Effects))
	for _, entry := range file.Effects {
		defs = append(defs, entry.Definition())
	}
	return defs, nil
}

// LoadFile reads one catalog file.
func LoadFile(path string) ([]effects.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return Parse(data, path)
}

// LoadPaths reads every file in paths. Directories contribute their *.yaml and *.yml
// files in name order.
func LoadPaths(paths []string) ([]effects.Definition, error) {
	var defs []effects.Definition
	for _, path := range paths {
		files, err := expand(path)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			loaded, err := LoadFile(file)
			if err != nil {
				return nil, err
			}
			defs = append(defs, loaded...)
		}
	}
	return defs, nil
}

func expand(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	var files []string
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Register adds defs to reg in order. Ids already present are skipped and logged,
// so earlier sources keep precedence. It returns the number registered.
func Register(reg *effects.Registry, defs []effects.Definition, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	added := 0
	for _, def := range defs {
		err := reg.Register(def.ID, def)
		switch {
		case errors.Is(err, effects.ErrDuplicateEffect):
			logger.Warn("skipping duplicate catalog effect", zap.String("effect_id", def.ID))
		case err != nil:
			return added, err
		default:
			added++
		}
	}
	return added, nil
}

func validate(file *File) error {
	if file.Version != 1 {
		return fmt.Errorf("unsupported version: %d", file.Version)
	}
	seen := make(map[string]struct{})
	for i, entry := range file.Effects {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			return fmt.Errorf("effect %d id is required", i)
		}
		if _, exists := seen[id]; exists {
			return fmt.Errorf("duplicate effect id: %s", id)
		}
		seen[id] = struct{}{}
		if err := validatePatches(id, entry.Patches); err != nil {
			return err
		}
	}
	return nil
}

func validatePatches(id string, patches []effects.Patch) error {
	for i, p := range patches {
		if !p.Kind.Valid() {
			return fmt.Errorf("effect %s patch %d: unknown kind %q", id, i, p.Kind)
		}
		if p.Kind == effects.PatchGroup {
			if err := validatePatches(id, p.Patches); err != nil {
				return err
			}
			continue
		}
		if strings.TrimSpace(p.Field) == "" {
			return fmt.Errorf("effect %s patch %d: field is required", id, i)
		}
	}
	return nil
}
