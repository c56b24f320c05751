// Package manifest handles graft.toml and graft.yaml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// File names searched for, in order.
var FileNames = []string{"graft.toml", "graft.yaml", "graft.yml"}

// Defaults applied by Load.
const (
	DefaultQueueSize    = 64
	DefaultReapInterval = 30 * time.Second
)

// Manifest represents a graft project configuration.
type Manifest struct {
	Project    Project     `toml:"project" yaml:"project"`
	Scripts    Scripts     `toml:"scripts" yaml:"scripts"`
	Components []Component `toml:"components" yaml:"components"`
	Includes   []Include   `toml:"includes" yaml:"includes"`
	Runtime    Runtime     `toml:"runtime" yaml:"runtime"`

	// Dir is the directory containing the manifest (set at load time).
	Dir string `toml:"-" yaml:"-"`
	// Path is the manifest file that was loaded.
	Path string `toml:"-" yaml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name" yaml:"name"`
	Version string `toml:"version" yaml:"version"`
}

// Scripts lists the script files to run, relative to the manifest.
type Scripts struct {
	Files []string `toml:"files" yaml:"files"`
}

// Component is a named class to instantiate after the scripts have run.
// Scripts register the class with a named extend.
type Component struct {
	Name   string `toml:"name" yaml:"name"`
	Args   []any  `toml:"args" yaml:"args"`
	Invoke string `toml:"invoke" yaml:"invoke"`
}

// Include is another graft project whose scripts run before this one's.
// Name is optional and only used in messages.
type Include struct {
	Name string `toml:"name" yaml:"name"`
	Path string `toml:"path" yaml:"path"`
}

// label names the include in errors.
func (inc Include) label() string {
	if inc.Name != "" {
		return inc.Name
	}
	return inc.Path
}

// Runtime tunes the script loop, the reaper and logging.
type Runtime struct {
	QueueSize    int    `toml:"queue-size" yaml:"queue-size"`
	ReapInterval string `toml:"reap-interval" yaml:"reap-interval"`
	LogVerbosity int    `toml:"log-verbosity" yaml:"log-verbosity"`
	LogFile      string `toml:"log-file" yaml:"log-file"`
}

// Load parses the manifest in the given directory.
func Load(dir string) (*Manifest, error) {
	path, err := find(dir)
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile parses a manifest file. The format follows the extension.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	default:
		err = toml.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Path = path
	m.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	// Defaults
	if m.Runtime.QueueSize <= 0 {
		m.Runtime.QueueSize = DefaultQueueSize
	}
	if m.Runtime.ReapInterval != "" {
		if _, err := time.ParseDuration(m.Runtime.ReapInterval); err != nil {
			return nil, fmt.Errorf("%s: invalid reap-interval %q: %w", path, m.Runtime.ReapInterval, err)
		}
	}
	for i, c := range m.Components {
		if c.Name == "" {
			return nil, fmt.Errorf("%s: component %d has no name", path, i)
		}
	}
	for i, inc := range m.Includes {
		if inc.Path == "" {
			return nil, fmt.Errorf("%s: include %d has no path", path, i)
		}
	}

	return &m, nil
}

// find returns the first manifest file present in dir.
func find(dir string) (string, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no graft manifest in %s", dir)
}

// FindAndLoad walks up from startDir to find a manifest, then loads and
// returns it. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		if _, err := find(dir); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// ScriptPaths returns absolute paths for the configured script files.
func (m *Manifest) ScriptPaths() []string {
	var paths []string
	for _, f := range m.Scripts.Files {
		if filepath.IsAbs(f) {
			paths = append(paths, f)
			continue
		}
		paths = append(paths, filepath.Join(m.Dir, f))
	}
	return paths
}

// ReapInterval returns the configured reaper interval.
func (m *Manifest) ReapInterval() time.Duration {
	if d, err := time.ParseDuration(m.Runtime.ReapInterval); err == nil && d > 0 {
		return d
	}
	return DefaultReapInterval
}

// LogFilePath returns the absolute log file path, or "" for stderr.
func (m *Manifest) LogFilePath() string {
	if m.Runtime.LogFile == "" || filepath.IsAbs(m.Runtime.LogFile) {
		return m.Runtime.LogFile
	}
	return filepath.Join(m.Dir, m.Runtime.LogFile)
}
