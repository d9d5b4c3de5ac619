// Package generate assembles change and undo scripts from pending scripts
// and the named templates that wrap them.
package generate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sqldeploy/sqldeploy/internal/migration"
	"github.com/sqldeploy/sqldeploy/internal/resource"
	"github.com/sqldeploy/sqldeploy/internal/token"
)

// ErrNoPendingScripts is returned when asked to build from an empty set.
var ErrNoPendingScripts = errors.New("no pending scripts to assemble")

// Resources supplies named templates.
type Resources interface {
	GetScriptFromFile(name resource.Name) (string, error)
}

// Assembler builds the change and undo scripts. Undo sections are taken from
// the Contents captured when the script was discovered, the same text the
// forward portion comes from.
type Assembler struct {
	resources Resources
	replacer  *token.Replacer
	logger    zerolog.Logger
}

func NewAssembler(resources Resources, replacer *token.Replacer, logger zerolog.Logger) *Assembler {
	return &Assembler{
		resources: resources,
		replacer:  replacer,
		logger:    logger,
	}
}

// BuildChangeScript concatenates the forward portion of every pending script
// in ascending order, each wrapped in the per-script header and footer.
// $(CURRENT_VERSION) is bound to the lowest pending id minus one.
func (a *Assembler) BuildChangeScript(pending []*migration.ScriptFile) (string, error) {
	if len(pending) == 0 {
		return "", ErrNoPendingScripts
	}

	delimiter, err := a.undoDelimiter()
	if err != nil {
		return "", err
	}

	scripts := migration.Ascending(pending)

	a.replacer.SetScript(nil)
	a.replacer.SetCurrentVersion(scripts[0].ID.Sub(decimal.NewFromInt(1)))
	a.logger.Debug().
		Str("version", a.replacer.CurrentVersion().String()).
		Int("scripts", len(scripts)).
		Msg("Building change script")

	var b strings.Builder
	if err := a.appendTemplate(&b, resource.ChangeScriptHeader); err != nil {
		return "", err
	}

	for _, sf := range scripts {
		a.replacer.SetScript(sf)

		if err := a.appendTemplate(&b, resource.ScriptHeader); err != nil {
			return "", err
		}
		forward, _, _ := SplitUndo(sf.Contents, delimiter)
		b.WriteString(forward)
		if err := a.appendTemplate(&b, resource.ScriptFooter); err != nil {
			return "", err
		}

		a.logger.Debug().
			Str("id", sf.ID.String()).
			Str("file", sf.FileName).
			Msg("Added script to change script")
	}

	a.replacer.SetScript(nil)
	if err := a.appendTemplate(&b, resource.ChangeScriptFooter); err != nil {
		return "", err
	}

	return b.String(), nil
}

// BuildUndoScript concatenates the undo sections of the pending scripts in
// descending order. Scripts without the undo delimiter contribute nothing.
// $(CURRENT_VERSION) is bound to the highest pending id.
func (a *Assembler) BuildUndoScript(pending []*migration.ScriptFile) (string, error) {
	if len(pending) == 0 {
		return "", ErrNoPendingScripts
	}

	delimiter, err := a.undoDelimiter()
	if err != nil {
		return "", err
	}

	scripts := migration.Descending(pending)

	a.replacer.SetScript(nil)
	a.replacer.SetCurrentVersion(scripts[0].ID)
	a.logger.Debug().
		Str("version", a.replacer.CurrentVersion().String()).
		Int("scripts", len(scripts)).
		Msg("Building undo script")

	var b strings.Builder
	if err := a.appendTemplate(&b, resource.UndoScriptHeader); err != nil {
		return "", err
	}

	for _, sf := range scripts {
		_, undo, ok := SplitUndo(sf.Contents, delimiter)
		if !ok {
			a.logger.Debug().
				Str("id", sf.ID.String()).
				Msg("Script has no undo section, skipping")
			continue
		}

		a.replacer.SetScript(sf)
		if err := a.appendTemplate(&b, resource.UndoHeader); err != nil {
			return "", err
		}
		b.WriteString(undo)
		if err := a.appendTemplate(&b, resource.UndoFooter); err != nil {
			return "", err
		}
	}

	a.replacer.SetScript(nil)
	if err := a.appendTemplate(&b, resource.UndoScriptFooter); err != nil {
		return "", err
	}

	return b.String(), nil
}

// SplitUndo splits contents at the first occurrence of delimiter. ok is false
// when the delimiter is absent, in which case forward is the whole contents.
func SplitUndo(contents, delimiter string) (forward, undo string, ok bool) {
	idx := strings.Index(contents, delimiter)
	if idx < 0 {
		return contents, "", false
	}
	return contents[:idx], contents[idx+len(delimiter):], true
}

func (a *Assembler) undoDelimiter() (string, error) {
	raw, err := a.resources.GetScriptFromFile(resource.UndoToken)
	if err != nil {
		return "", err
	}
	delimiter := strings.TrimSpace(raw)
	if delimiter == "" {
		return "", &resource.TemplateResourceError{
			Name: resource.UndoToken,
			Err:  errors.New("undo delimiter is empty"),
		}
	}
	return delimiter, nil
}

func (a *Assembler) appendTemplate(b *strings.Builder, name resource.Name) error {
	text, err := a.resources.GetScriptFromFile(name)
	if err != nil {
		return err
	}
	out, err := a.replacer.Replace(text)
	if err != nil {
		return fmt.Errorf("failed to substitute tokens in %s: %w", name, err)
	}
	b.WriteString(out)
	return nil
}
