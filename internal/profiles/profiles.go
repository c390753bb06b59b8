// Package profiles loads extraction profiles: named category/language
// presets that shape the extraction prompt.
package profiles

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"justdraft/internal/extract"
)

// DefaultName is the profile used when none is configured.
const DefaultName = "default"

// Profile is one prompt preset.
type Profile struct {
	Name           string   `yaml:"name"`
	Language       string   `yaml:"language,omitempty"`
	Categories     []string `yaml:"categories,omitempty"`
	PriorityHigh   string   `yaml:"priority_high,omitempty"`
	PriorityNormal string   `yaml:"priority_normal,omitempty"`
}

// Prompt renders the extraction system prompt for this profile.
func (p *Profile) Prompt() string {
	return extract.BuildSystemPrompt(extract.PromptSpec{
		Categories:     p.Categories,
		Language:       p.Language,
		PriorityHigh:   p.PriorityHigh,
		PriorityNormal: p.PriorityNormal,
	})
}

// Registry holds loaded profiles plus the built-in default.
type Registry struct {
	profiles map[string]*Profile
}

// NewRegistry creates a registry seeded with the built-in default
// profile.
func NewRegistry() *Registry {
	r := &Registry{profiles: make(map[string]*Profile)}
	r.profiles[DefaultName] = &Profile{
		Name:           DefaultName,
		Language:       extract.DefaultLanguage,
		Categories:     extract.DefaultCategories,
		PriorityHigh:   extract.PriorityHigh,
		PriorityNormal: extract.PriorityNormal,
	}
	return r
}

// LoadDir discovers *.yaml / *.yml files anywhere under dir and loads
// them. A missing directory is not an error.
func (r *Registry) LoadDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		slog.Debug("profiles directory not found, skipping", "dir", dir)
		return nil
	}

	matches, err := doublestar.FilepathGlob(filepath.Join(dir, "**", "*.{yaml,yml}"))
	if err != nil {
		return fmt.Errorf("scan profiles dir %s: %w", dir, err)
	}

	for _, path := range matches {
		p, err := loadProfile(path)
		if err != nil {
			slog.Warn("failed to load profile", "path", path, "error", err)
			continue
		}
		if err := r.Register(p); err != nil {
			slog.Warn("failed to register profile", "name", p.Name, "error", err)
		}
	}
	return nil
}

func loadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &p, nil
}

// Register adds a profile, rejecting duplicate names. The built-in
// default may be overridden.
func (r *Registry) Register(p *Profile) error {
	if _, exists := r.profiles[p.Name]; exists && p.Name != DefaultName {
		return fmt.Errorf("duplicate profile %q", p.Name)
	}
	r.profiles[p.Name] = p
	return nil
}

// Get returns a profile by name.
func (r *Registry) Get(name string) (*Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q", name)
	}
	return p, nil
}

// Names lists registered profiles in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
