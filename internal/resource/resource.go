// Package resource serves the named SQL templates that wrap generated scripts
// and drive changelog access.
//
// A template is looked up first in the configured override directory, then
// in the embedded templates for the target DBMS, then in the embedded common
// templates.
package resource

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/sqldeploy/sqldeploy/internal/config"
	"github.com/sqldeploy/sqldeploy/internal/migration"
)

// Name is a logical template name.
type Name string

const (
	ChangeScriptHeader    Name = "ChangeScriptHeader"
	ChangeScriptFooter    Name = "ChangeScriptFooter"
	ScriptHeader          Name = "ScriptHeader"
	ScriptFooter          Name = "ScriptFooter"
	UndoScriptHeader      Name = "UndoScriptHeader"
	UndoScriptFooter      Name = "UndoScriptFooter"
	UndoHeader            Name = "UndoHeader"
	UndoFooter            Name = "UndoFooter"
	UndoToken             Name = "UndoToken"
	EnsureChangeLogExists Name = "EnsureChangeLogExists"
	GetChangeLog          Name = "GetChangeLog"
)

// Names lists every logical template.
var Names = []Name{
	ChangeScriptHeader, ChangeScriptFooter,
	ScriptHeader, ScriptFooter,
	UndoScriptHeader, UndoScriptFooter,
	UndoHeader, UndoFooter,
	UndoToken,
	EnsureChangeLogExists, GetChangeLog,
}

const extension = ".sql"

//go:embed templates
var embedded embed.FS

// TemplateResourceError reports a template that could not be fetched.
type TemplateResourceError struct {
	Name Name
	DBMS config.DBMS
	Err  error
}

func (e *TemplateResourceError) Error() string {
	return fmt.Sprintf("template %s for %s could not be loaded: %v", e.Name, e.DBMS, e.Err)
}

func (e *TemplateResourceError) Unwrap() error {
	return e.Err
}

// FileReader reads override templates.
type FileReader interface {
	ReadFile(path string, useCache bool) (string, error)
	Exists(path string) bool
}

type Provider struct {
	dbms         config.DBMS
	templatesDir string
	files        FileReader
	logger       zerolog.Logger
}

// NewProvider returns a provider for dbms. templatesDir may be empty, in
// which case only embedded templates are used.
func NewProvider(dbms config.DBMS, templatesDir string, files FileReader, logger zerolog.Logger) *Provider {
	return &Provider{
		dbms:         dbms,
		templatesDir: templatesDir,
		files:        files,
		logger:       logger,
	}
}

// GetScriptFromFile returns the normalized text of the named template.
func (p *Provider) GetScriptFromFile(name Name) (string, error) {
	text, source, err := p.load(name)
	if err != nil {
		return "", &TemplateResourceError{Name: name, DBMS: p.dbms, Err: err}
	}

	p.logger.Debug().
		Str("template", string(name)).
		Str("source", source).
		Msg("Loaded template")

	return migration.NormalizeContent(text), nil
}

// Source reports where name would be loaded from without reading it.
func (p *Provider) Source(name Name) (string, error) {
	if p.templatesDir != "" {
		override := filepath.Join(p.templatesDir, string(name)+extension)
		if p.files != nil && p.files.Exists(override) {
			return override, nil
		}
	}
	for _, candidate := range p.embeddedPaths(name) {
		if _, err := fs.Stat(embedded, candidate); err == nil {
			return "embedded:" + candidate, nil
		}
	}
	return "", fmt.Errorf("no template named %s", name)
}

func (p *Provider) load(name Name) (string, string, error) {
	if p.templatesDir != "" && p.files != nil {
		override := filepath.Join(p.templatesDir, string(name)+extension)
		if p.files.Exists(override) {
			text, err := p.files.ReadFile(override, true)
			if err != nil {
				return "", "", err
			}
			return text, override, nil
		}
	}

	for _, candidate := range p.embeddedPaths(name) {
		data, err := embedded.ReadFile(candidate)
		if err == nil {
			return string(data), "embedded:" + candidate, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", "", err
		}
	}

	return "", "", fmt.Errorf("no template named %s: %w", name, fs.ErrNotExist)
}

func (p *Provider) embeddedPaths(name Name) []string {
	file := string(name) + extension
	return []string{
		path.Join("templates", string(p.dbms), file),
		path.Join("templates", "common", file),
	}
}
