package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

type profileSpec struct {
	Type     string `yaml:"type"`
	Settings struct {
		RootPath       string `yaml:"root_path"`
		FileNameFormat string `yaml:"file_name_format"`
	} `yaml:"settings"`
}

// Manager resolves named storage profiles from YAML definitions in a
// directory. Profiles are loaded on first use and cached.
type Manager struct {
	dir string

	mu       sync.Mutex
	profiles map[string]Profile
}

func NewManager(dir string) *Manager {
	return &Manager{
		dir:      dir,
		profiles: make(map[string]Profile),
	}
}

func (m *Manager) Get(name string) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.profiles[name]; ok {
		return p, nil
	}

	p, err := m.load(name)
	if err != nil {
		return nil, err
	}
	m.profiles[name] = p
	return p, nil
}

func (m *Manager) Exists(name string) bool {
	_, err := m.Get(name)
	return err == nil
}

// Save resolves the profile and writes the file through it.
func (m *Manager) Save(profile, filename string, data []byte) error {
	p, err := m.Get(profile)
	if err != nil {
		return err
	}
	return p.Save(filename, data)
}

func (m *Manager) load(name string) (Profile, error) {
	raw, err := os.ReadFile(filepath.Join(m.dir, name+".yaml"))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read storage profile %s: %w", name, err)
	}

	var spec profileSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("parse storage profile %s: %w", name, err)
	}

	switch spec.Type {
	case "local", "local_filesystem", "":
		if spec.Settings.RootPath == "" {
			return nil, fmt.Errorf("storage profile %s: root_path is required", name)
		}
		return NewLocalProfile(os.ExpandEnv(spec.Settings.RootPath), spec.Settings.FileNameFormat), nil
	default:
		return nil, fmt.Errorf("storage profile %s: unsupported type %q", name, spec.Type)
	}
}
