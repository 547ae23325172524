package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModeData selects the strict "data" table projection.
const ModeData = "data"

// Profile describes how the host wants a family of files to be loaded and
// presented: which sheets are acceptable and which projection mode applies.
type Profile struct {
	Name          string   `yaml:"name"`
	Title         string   `yaml:"title"`
	Description   string   `yaml:"description,omitempty"`
	AllowedSheets []string `yaml:"allowed_sheets"`
	Type          string   `yaml:"type,omitempty"`
}

// Profiles is an ordered profile list; the first entry is the default.
type Profiles []Profile

type profilesFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// DefaultProfiles returns the built-in profiles.
func DefaultProfiles() Profiles {
	return Profiles{
		{
			Name:          "obras",
			Title:         "Control de Proyectos DMO",
			Description:   "Estado de avance, presupuestos y gestión de obras.",
			AllowedSheets: []string{"DMO-Obras"},
		},
		{
			Name:          "nuevo",
			Title:         "Histórico Notas de Cambio (Hospitales 2022)",
			Description:   "Análisis de aumentos, disminuciones y obras extraordinarias.",
			AllowedSheets: []string{"2_Notas de Cambio", "Notas de Cambio", "Hoja1"},
		},
	}
}

// LoadProfiles reads a YAML profiles file. An empty path yields the defaults.
func LoadProfiles(path string) (Profiles, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultProfiles(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read profiles: %w", err)
	}
	return ParseProfiles(b)
}

// ParseProfiles decodes and validates a YAML profiles document.
func ParseProfiles(b []byte) (Profiles, error) {
	var pf profilesFile
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return nil, fmt.Errorf("config: parse profiles: %w", err)
	}
	if len(pf.Profiles) == 0 {
		return nil, fmt.Errorf("config: profiles file defines no profiles")
	}
	seen := make(map[string]struct{}, len(pf.Profiles))
	for i := range pf.Profiles {
		p := &pf.Profiles[i]
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return nil, fmt.Errorf("config: profile %d has no name", i+1)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("config: duplicate profile %q", p.Name)
		}
		seen[p.Name] = struct{}{}
		p.Type = strings.ToLower(strings.TrimSpace(p.Type))
		if p.Type != "" && p.Type != ModeData {
			return nil, fmt.Errorf("config: profile %q has unknown type %q", p.Name, p.Type)
		}
	}
	return Profiles(pf.Profiles), nil
}

// Lookup returns the named profile, or the first profile when name is empty.
func (ps Profiles) Lookup(name string) (Profile, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		if len(ps) == 0 {
			return Profile{}, false
		}
		return ps[0], true
	}
	for _, p := range ps {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// Names lists profile names in declaration order.
func (ps Profiles) Names() []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}
