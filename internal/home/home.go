package home

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultDirName is the default name for the trainset home directory.
	DefaultDirName = ".trainset"

	// SourceDirName holds the source documents, one subdirectory per class.
	SourceDirName = "text_books"

	// OutputDirName holds the generated datasets and their sidecars.
	OutputDirName = "training_data"

	// PromptsDirName holds optional prompt template overrides.
	PromptsDirName = "prompts"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// DatasetExt is the extension of dataset files.
	DatasetExt = ".json"
)

// Dir represents the trainset home directory structure.
// Source and output default to subdirectories of the home and may be
// overridden individually.
type Dir struct {
	path   string
	source string
	output string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.trainset).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// WithPaths returns a copy of d with source and output overridden.
// Empty arguments keep the home-relative default.
func (d *Dir) WithPaths(source, output string) *Dir {
	out := *d
	if source != "" {
		out.source = source
	}
	if output != "" {
		out.output = output
	}
	return &out
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// SourcePath returns the root of the source documents.
func (d *Dir) SourcePath() string {
	if d.source != "" {
		return d.source
	}
	return filepath.Join(d.path, SourceDirName)
}

// OutputPath returns the directory datasets are written to.
func (d *Dir) OutputPath() string {
	if d.output != "" {
		return d.output
	}
	return filepath.Join(d.path, OutputDirName)
}

// PromptsPath returns the prompt override directory.
func (d *Dir) PromptsPath() string {
	return filepath.Join(d.path, PromptsDirName)
}

// DatasetPath returns the dataset file for a subject.
// Subjects share one file across classes; the base name is lowercased.
func (d *Dir) DatasetPath(subject string) string {
	return filepath.Join(d.OutputPath(), strings.ToLower(subject)+DatasetExt)
}

// EnsureExists creates the home and output directories if they don't exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return fmt.Errorf("failed to create home directory: %w", err)
	}
	if err := os.MkdirAll(d.OutputPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// SourceExists returns true if the source root is an existing directory.
func (d *Dir) SourceExists() bool {
	info, err := os.Stat(d.SourcePath())
	return err == nil && info.IsDir()
}
