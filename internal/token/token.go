// Package token substitutes the fixed set of $(NAME) tokens understood in
// script templates.
package token

import (
	"errors"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sqldeploy/sqldeploy/internal/migration"
)

const (
	CurrentDateTime   = "$(CURRENT_DATETIME)"
	CurrentUser       = "$(CURRENT_USER)"
	CurrentVersion    = "$(CURRENT_VERSION)"
	ScriptID          = "$(SCRIPT_ID)"
	ScriptName        = "$(SCRIPT_NAME)"
	ScriptDescription = "$(SCRIPT_DESCRIPTION)"
	SchemaName        = "$(SCHEMA_NAME)"
	ChangeLogTable    = "$(CHANGELOG_TABLE)"
)

// DateTimeLayout formats $(CURRENT_DATETIME).
const DateTimeLayout = "2006-01-02 15:04:05"

// ErrInvalidTokenArgument is returned when the token to search for is empty.
var ErrInvalidTokenArgument = errors.New("token to replace must not be empty")

type Clock interface {
	Now() time.Time
}

type Identity interface {
	Name() string
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// OSIdentity names the user running the process.
type OSIdentity struct{}

func (OSIdentity) Name() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	if name := os.Getenv("USERNAME"); name != "" {
		return name
	}
	return "unknown"
}

// Settings carries the configuration-derived token values.
type Settings struct {
	SchemaName     string
	ChangeLogTable string
}

// Replacer substitutes tokens using a bound version and, optionally, a bound
// script. It is not safe for concurrent use.
type Replacer struct {
	settings Settings
	clock    Clock
	identity Identity
	version  decimal.Decimal
	script   *migration.ScriptFile
}

func NewReplacer(settings Settings, clock Clock, identity Identity) *Replacer {
	if clock == nil {
		clock = SystemClock{}
	}
	if identity == nil {
		identity = OSIdentity{}
	}
	return &Replacer{
		settings: settings,
		clock:    clock,
		identity: identity,
		version:  decimal.Zero,
	}
}

func (r *Replacer) SetCurrentVersion(v decimal.Decimal) {
	r.version = v
}

func (r *Replacer) CurrentVersion() decimal.Decimal {
	return r.version
}

// SetScript binds the current script; nil unbinds it.
func (r *Replacer) SetScript(sf *migration.ScriptFile) {
	r.script = sf
}

// Replace substitutes every known token in template.
func (r *Replacer) Replace(template string) (string, error) {
	scriptID, scriptName, scriptDesc := "0", "", ""
	if r.script != nil {
		scriptID = r.script.ID.String()
		scriptName = r.script.FileName
		scriptDesc = r.script.Description
	}

	pairs := []struct{ token, value string }{
		{CurrentDateTime, r.clock.Now().Format(DateTimeLayout)},
		{CurrentUser, r.identity.Name()},
		{CurrentVersion, r.version.String()},
		{ScriptID, scriptID},
		{ScriptName, scriptName},
		{ScriptDescription, scriptDesc},
		{SchemaName, r.settings.SchemaName},
		{ChangeLogTable, r.settings.ChangeLogTable},
	}

	oldnew := make([]string, 0, 2*len(pairs))
	for _, p := range pairs {
		if p.token == "" {
			return "", ErrInvalidTokenArgument
		}
		oldnew = append(oldnew, p.token, Sanitize(p.value))
	}
	// a single pass, so substituted values are never scanned for tokens
	return strings.NewReplacer(oldnew...).Replace(template), nil
}

// ReplaceToken replaces every occurrence of token in template with the
// sanitized value.
func ReplaceToken(template, token, value string) (string, error) {
	if token == "" {
		return "", ErrInvalidTokenArgument
	}
	return strings.ReplaceAll(template, token, Sanitize(value)), nil
}

// Sanitize doubles single quotes and turns semicolons into underscores so a
// value cannot close a SQL string literal or end a statement.
func Sanitize(value string) string {
	value = strings.ReplaceAll(value, "'", "''")
	return strings.ReplaceAll(value, ";", "_")
}
