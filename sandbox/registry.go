package sandbox

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed presets/*.yml
var presetsFS embed.FS

// Preset is a named, reusable isolation policy shipped with the tool or
// loaded from a user-provided YAML file.
type Preset struct {
	Name        string
	Description string
	Policy      Policy
}

// PresetRegistry manages built-in and custom isolation presets.
type PresetRegistry interface {
	// GetPreset retrieves a preset by name. Name can be a built-in preset
	// (e.g. "restricted") or a path to a custom YAML file.
	GetPreset(name string) (*Preset, error)

	// LoadCustomPreset loads a preset from a custom YAML file path.
	LoadCustomPreset(path string) (*Preset, error)

	// ListPresets returns all known presets sorted by name.
	ListPresets() []*Preset
}

// NewPresetRegistry creates a preset registry with the built-in presets
// loaded from the embedded filesystem.
func NewPresetRegistry() (PresetRegistry, error) {
	return newDefaultPresetRegistry()
}

type defaultPresetRegistry struct {
	mu      sync.RWMutex
	presets map[string]*Preset
}

func newDefaultPresetRegistry() (*defaultPresetRegistry, error) {
	registry := &defaultPresetRegistry{
		presets: make(map[string]*Preset),
	}

	if err := registry.loadBuiltinPresets(); err != nil {
		return nil, fmt.Errorf("failed to load built-in presets: %w", err)
	}

	return registry, nil
}

func (r *defaultPresetRegistry) loadBuiltinPresets() error {
	entries, err := presetsFS.ReadDir("presets")
	if err != nil {
		return fmt.Errorf("failed to read presets directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yml") {
			continue
		}

		data, err := presetsFS.ReadFile(filepath.Join("presets", entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read preset %s: %w", entry.Name(), err)
		}

		preset, err := parsePreset(data)
		if err != nil {
			return fmt.Errorf("failed to parse preset %s: %w", entry.Name(), err)
		}

		r.mu.Lock()
		r.presets[preset.Name] = preset
		r.mu.Unlock()
	}

	return nil
}

// GetPreset retrieves a preset by name. First checks built-in presets,
// then attempts to load the name as a custom file path.
func (r *defaultPresetRegistry) GetPreset(name string) (*Preset, error) {
	r.mu.RLock()
	if preset, exists := r.presets[name]; exists {
		r.mu.RUnlock()
		return preset, nil
	}
	r.mu.RUnlock()

	if fileExists(name) {
		return r.LoadCustomPreset(name)
	}

	return nil, fmt.Errorf("sandbox preset not found: %s (not a built-in preset and file does not exist)", name)
}

func (r *defaultPresetRegistry) LoadCustomPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read custom preset %s: %w", path, err)
	}

	preset, err := parsePreset(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse custom preset %s: %w", path, err)
	}

	r.mu.Lock()
	r.presets[preset.Name] = preset
	r.mu.Unlock()

	return preset, nil
}

func (r *defaultPresetRegistry) ListPresets() []*Preset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	presets := make([]*Preset, 0, len(r.presets))
	for _, preset := range r.presets {
		presets = append(presets, preset)
	}

	sort.Slice(presets, func(i, j int) bool {
		return presets[i].Name < presets[j].Name
	})

	return presets
}

// presetSpec is the on-disk YAML schema for a preset. Durations and the
// network mode are strings in the file and converted during parse.
type presetSpec struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Policy      policySpec `yaml:"policy"`
}

type policySpec struct {
	Memory         string   `yaml:"memory"`
	CPU            float64  `yaml:"cpu"`
	Network        string   `yaml:"network"`
	ReadOnly       *bool    `yaml:"read_only"`
	AllowedPaths   []string `yaml:"allowed_paths"`
	AllowedHosts   []string `yaml:"allowed_hosts"`
	Timeout        string   `yaml:"timeout"`
	MaxOutputBytes int64    `yaml:"max_output_bytes"`
	WorkDir        string   `yaml:"work_dir"`
}

func parsePreset(data []byte) (*Preset, error) {
	var spec presetSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if spec.Name == "" {
		return nil, fmt.Errorf("preset name is required")
	}

	policy, err := spec.Policy.toPolicy()
	if err != nil {
		return nil, fmt.Errorf("invalid policy in preset %s: %w", spec.Name, err)
	}

	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy in preset %s: %w", spec.Name, err)
	}

	return &Preset{
		Name:        spec.Name,
		Description: spec.Description,
		Policy:      policy,
	}, nil
}

func (s *policySpec) toPolicy() (Policy, error) {
	network, err := ParseNetworkMode(s.Network)
	if err != nil {
		return Policy{}, err
	}

	var timeout time.Duration
	if s.Timeout != "" {
		timeout, err = time.ParseDuration(s.Timeout)
		if err != nil {
			return Policy{}, fmt.Errorf("invalid timeout: %w", err)
		}
	}

	policy := Policy{
		Memory:         s.Memory,
		CPU:            s.CPU,
		Network:        network,
		ReadOnly:       true,
		AllowedPaths:   s.AllowedPaths,
		AllowedHosts:   s.AllowedHosts,
		Timeout:        timeout,
		MaxOutputBytes: s.MaxOutputBytes,
		WorkDir:        s.WorkDir,
	}

	if s.ReadOnly != nil {
		policy.ReadOnly = *s.ReadOnly
	}

	return policy.WithDefaults(), nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
