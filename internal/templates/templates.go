// Package templates manages reusable scan option bundles. Built-in
// templates ship with the binary; custom templates are stored as one
// JSON file each under a templates directory.
package templates

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/scanwell/scanwell/internal/engine"
	scanerrors "github.com/scanwell/scanwell/internal/errors"
)

const (
	templateDirPerm  = 0750
	templateFilePerm = 0600
)

// Template is a named, reusable scan configuration.
type Template struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Options     engine.Options `json:"options"`
	BuiltIn     bool           `json:"built_in"`
	CreatedAt   time.Time      `json:"created_at,omitempty"`
}

// builtIn returns the templates every installation carries.
func builtIn() []Template {
	return []Template{
		{
			ID:          "fast",
			Name:        "Fast Scan",
			Description: "Quick scan of most common ports (-F)",
			Options:     engine.Options{Preset: engine.PresetFast, Timing: "T4"},
			BuiltIn:     true,
		},
		{
			ID:          "top1000",
			Name:        "Top 1000 Ports",
			Description: "Scan top 1000 most common ports",
			Options:     engine.Options{Preset: engine.PresetTop1000, Timing: "T4"},
			BuiltIn:     true,
		},
		{
			ID:          "comprehensive",
			Name:        "Comprehensive Scan",
			Description: "Full scan with OS detection and scripts (-A)",
			Options:     engine.Options{Preset: engine.PresetComprehensive, Timing: "T4"},
			BuiltIn:     true,
		},
		{
			ID:          "stealth",
			Name:        "Stealth SYN Scan",
			Description: "SYN stealth scan (-sS)",
			Options:     engine.Options{Preset: engine.PresetStealth, Timing: "T3"},
			BuiltIn:     true,
		},
		{
			ID:          "vuln",
			Name:        "Vulnerability Scan",
			Description: "Scan with vulnerability detection scripts",
			Options:     engine.Options{Preset: engine.PresetVuln, Scripts: true, Timing: "T4"},
			BuiltIn:     true,
		},
		{
			ID:          "discovery",
			Name:        "Network Discovery",
			Description: "Host discovery scan (-sn)",
			Options:     engine.Options{Preset: engine.PresetDiscovery, Timing: "T4"},
			BuiltIn:     true,
		},
	}
}

// Manager loads and saves templates under one directory.
type Manager struct {
	dir string
}

// NewManager creates a template manager rooted at dir.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// List returns built-in templates followed by custom ones sorted by id.
// Unreadable custom files are skipped, not fatal.
func (m *Manager) List() ([]Template, error) {
	out := builtIn()

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("failed to read templates directory: %w", err)
	}

	var custom []Template
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(m.dir, entry.Name()))
		if err != nil {
			continue
		}
		var tpl Template
		if err := json.Unmarshal(data, &tpl); err != nil {
			continue
		}
		tpl.ID = strings.TrimSuffix(entry.Name(), ".json")
		tpl.BuiltIn = false
		custom = append(custom, tpl)
	}

	sort.Slice(custom, func(i, j int) bool { return custom[i].ID < custom[j].ID })
	return append(out, custom...), nil
}

// Get returns the template with the given id.
func (m *Manager) Get(id string) (*Template, error) {
	list, err := m.List()
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, scanerrors.NewScanError(scanerrors.CodeNotFound,
		fmt.Sprintf("template %q not found", id))
}

// Save stores a custom template. The id is derived from the name;
// built-in ids cannot be shadowed.
func (m *Manager) Save(name, description string, options engine.Options) (*Template, error) {
	if strings.TrimSpace(name) == "" {
		return nil, scanerrors.NewScanError(scanerrors.CodeValidation, "template name is required")
	}

	id := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
	for _, b := range builtIn() {
		if b.ID == id {
			return nil, scanerrors.NewScanError(scanerrors.CodeConflict,
				fmt.Sprintf("template id %q is built in", id))
		}
	}

	tpl := Template{
		ID:          id,
		Name:        name,
		Description: description,
		Options:     options,
		CreatedAt:   time.Now(),
	}

	if err := os.MkdirAll(m.dir, templateDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create templates directory: %w", err)
	}
	data, err := json.MarshalIndent(tpl, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal template: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.dir, id+".json"), data, templateFilePerm); err != nil {
		return nil, fmt.Errorf("failed to write template: %w", err)
	}
	return &tpl, nil
}

// Delete removes a custom template. Built-in templates cannot be
// deleted.
func (m *Manager) Delete(id string) error {
	for _, b := range builtIn() {
		if b.ID == id {
			return scanerrors.NewScanError(scanerrors.CodeValidation,
				fmt.Sprintf("template %q is built in", id))
		}
	}
	err := os.Remove(filepath.Join(m.dir, id+".json"))
	if os.IsNotExist(err) {
		return scanerrors.NewScanError(scanerrors.CodeNotFound,
			fmt.Sprintf("template %q not found", id))
	}
	return err
}
