package styles

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/entrhq/stylebot/pkg/types"
	"gopkg.in/yaml.v3"
)

// Persister loads and saves the complete style set.
type Persister interface {
	Load() (map[string]types.Style, error)
	Save(styles map[string]types.Style) error
}

const styleFileVersion = "1.0"

type styleFile struct {
	Version string        `yaml:"version"`
	Styles  []types.Style `yaml:"styles"`
}

// FilePersister stores styles in a YAML file.
type FilePersister struct {
	path string
}

// NewFilePersister creates a persister for path.
// If path is empty, defaults to ~/.stylebot/styles.yaml
func NewFilePersister(path string) (*FilePersister, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".stylebot", "styles.yaml")
	}
	return &FilePersister{path: path}, nil
}

// Path returns the file path of the persister.
func (f *FilePersister) Path() string {
	return f.path
}

// Load reads the file. A missing file yields an empty set.
func (f *FilePersister) Load() (map[string]types.Style, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]types.Style{}, nil
		}
		return nil, fmt.Errorf("failed to read styles file: %w", err)
	}

	var contents styleFile
	if err := yaml.Unmarshal(data, &contents); err != nil {
		return nil, fmt.Errorf("failed to parse styles file: %w", err)
	}

	styles := make(map[string]types.Style, len(contents.Styles))
	for _, s := range contents.Styles {
		styles[s.URL] = s
	}
	return styles, nil
}

// Save writes the file atomically through a temp file and rename. Styles
// are written in pattern order so the file diffs cleanly.
func (f *FilePersister) Save(styles map[string]types.Style) error {
	contents := styleFile{
		Version: styleFileVersion,
		Styles:  make([]types.Style, 0, len(styles)),
	}
	for _, s := range styles {
		contents.Styles = append(contents.Styles, s)
	}
	sort.Slice(contents.Styles, func(i, j int) bool {
		return contents.Styles[i].URL < contents.Styles[j].URL
	})

	data, err := yaml.Marshal(&contents)
	if err != nil {
		return fmt.Errorf("failed to encode styles: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0750); err != nil {
		return fmt.Errorf("failed to create styles directory: %w", err)
	}

	tempPath := f.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp styles file: %w", err)
	}
	if err := os.Rename(tempPath, f.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
