// Package config persists user preferences as YAML under the user
// config directory. Persistence is best-effort: the core never fails
// because a write did.
package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/NicolasHaas/goptt/pkg/hotkey"
)

// document is the on-disk shape. Absent keys fall back to defaults.
type document struct {
	TriggerHotkey      string `yaml:"trigger_hotkey,omitempty"`
	ToggleActiveHotkey string `yaml:"toggle_active_hotkey,omitempty"`
}

// File is a YAML-backed binding store. It satisfies
// hotkey.BindingStore.
type File struct {
	path string
}

// Default returns the store at the standard per-user location,
// e.g. ~/.config/goptt/config.yaml.
func Default() *File {
	dir, err := os.UserConfigDir()
	if err != nil {
		return &File{path: "config.yaml"}
	}
	return &File{path: filepath.Join(dir, "goptt", "config.yaml")}
}

// At returns a store reading and writing the given path.
func At(path string) *File {
	return &File{path: path}
}

// Load returns the stored accelerator string per role. Roles never
// written are absent from the map; a missing or unreadable file is an
// empty map, not an error.
func (f *File) Load() map[hotkey.Role]string {
	out := make(map[hotkey.Role]string)
	data, err := os.ReadFile(f.path)
	if err != nil {
		return out
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		slog.Error("parse config", "path", f.path, "err", err)
		return out
	}
	if doc.TriggerHotkey != "" {
		out[hotkey.RoleTrigger] = doc.TriggerHotkey
	}
	if doc.ToggleActiveHotkey != "" {
		out[hotkey.RoleToggleActive] = doc.ToggleActiveHotkey
	}
	return out
}

// Store writes the bindings back. Failures are logged and swallowed.
func (f *File) Store(bindings map[hotkey.Role]string) {
	doc := document{
		TriggerHotkey:      bindings[hotkey.RoleTrigger],
		ToggleActiveHotkey: bindings[hotkey.RoleToggleActive],
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		slog.Error("encode config", "err", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		slog.Error("create config dir", "err", err)
		return
	}
	if err := os.WriteFile(f.path, data, 0600); err != nil {
		slog.Error("write config", "path", f.path, "err", err)
	}
}
