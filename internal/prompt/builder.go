// Package prompt turns (mode, language) into the system instruction, the
// disclaimer attached to responses, and the safe fallback text substituted
// when the upstream call fails. Tables are embedded YAML locale files;
// English is the default-language fallback for any missing cell.
package prompt

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"

	"carechat/internal/domain/model"
	"carechat/internal/lang"
)

//go:embed locales
var localesFS embed.FS

type modeEntry struct {
	System     string `yaml:"system"`
	Disclaimer string `yaml:"disclaimer"`
	Fallback   string `yaml:"fallback"`
}

type localeTable struct {
	Directive string               `yaml:"directive"`
	Medical   modeEntry            `yaml:"medical"`
	Therapy   modeEntry            `yaml:"therapy"`
	Recipe    modeEntry            `yaml:"recipe"`
	Dental    modeEntry            `yaml:"dental"`
	entries   map[model.Mode]modeEntry
}

func (t *localeTable) index() {
	t.entries = map[model.Mode]modeEntry{
		model.ModeMedical: t.Medical,
		model.ModeTherapy: t.Therapy,
		model.ModeRecipe:  t.Recipe,
		model.ModeDental:  t.Dental,
	}
}

type Builder struct {
	tables map[lang.Code]*localeTable
}

// NewBuilder parses all embedded locale files. It fails when the English
// table is missing or incomplete, since every lookup falls back to it.
func NewBuilder() (*Builder, error) {
	b := &Builder{tables: make(map[lang.Code]*localeTable)}
	for _, code := range lang.Supported() {
		path := fmt.Sprintf("locales/%s.yaml", code)
		data, err := fs.ReadFile(localesFS, path)
		if err != nil {
			if code == lang.English {
				return nil, fmt.Errorf("read locale %s: %w", path, err)
			}
			continue
		}
		var t localeTable
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", path, err)
		}
		t.index()
		b.tables[code] = &t
	}

	en := b.tables[lang.English]
	if en == nil {
		return nil, fmt.Errorf("english locale table missing")
	}
	for mode, e := range en.entries {
		if strings.TrimSpace(e.System) == "" || strings.TrimSpace(e.Fallback) == "" {
			return nil, fmt.Errorf("english locale incomplete for mode %s", mode)
		}
	}
	return b, nil
}

func (b *Builder) lookup(m model.Mode, c lang.Code) (modeEntry, *localeTable) {
	t, ok := b.tables[c]
	if !ok {
		t = b.tables[lang.English]
	}
	e := t.entries[m]
	if strings.TrimSpace(e.System) == "" {
		e.System = b.tables[lang.English].entries[m].System
	}
	if strings.TrimSpace(e.Disclaimer) == "" {
		e.Disclaimer = b.tables[lang.English].entries[m].Disclaimer
	}
	if strings.TrimSpace(e.Fallback) == "" {
		e.Fallback = b.tables[lang.English].entries[m].Fallback
	}
	return e, t
}

// Build returns the system instruction for a mode, with the language
// directive appended so answers come back in the caller's language.
func (b *Builder) Build(m model.Mode, c lang.Code) string {
	e, t := b.lookup(m, c)
	sys := strings.TrimSpace(e.System)
	if d := strings.TrimSpace(t.Directive); d != "" {
		sys = sys + "\n" + d
	}
	return sys
}

// Disclaimer returns the localized disclaimer attached to responses.
// Medical and therapy always carry one; recipe and dental may be shorter.
func (b *Builder) Disclaimer(m model.Mode, c lang.Code) string {
	e, _ := b.lookup(m, c)
	return strings.TrimSpace(e.Disclaimer)
}

// Fallback returns the mode-appropriate safe text persisted as the assistant
// turn when the upstream call fails.
func (b *Builder) Fallback(m model.Mode, c lang.Code) string {
	e, _ := b.lookup(m, c)
	return strings.TrimSpace(e.Fallback)
}
