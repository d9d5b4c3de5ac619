package schema

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sqldeploy/sqldeploy/internal/migration"
	"github.com/sqldeploy/sqldeploy/internal/resource"
	"github.com/sqldeploy/sqldeploy/internal/token"
)

// ChangeLogEntry is one row of the changelog table.
type ChangeLogEntry struct {
	ChangeNumber       decimal.Decimal
	AppliedBy          string
	ApplicationEndDate time.Time
	Description        string
}

// AppliedChanges maps migration.Key(change number) to its changelog entry.
type AppliedChanges map[string]ChangeLogEntry

// Reader supplies the changes already applied to the target database.
type Reader interface {
	GetAppliedChanges(ctx context.Context) (AppliedChanges, error)
	Close() error
}

// Resources supplies the changelog templates.
type Resources interface {
	GetScriptFromFile(name resource.Name) (string, error)
}

// queries renders the EnsureChangeLogExists and GetChangeLog templates.
type queries struct {
	resources Resources
	replacer  *token.Replacer
}

func (q queries) render(name resource.Name) (string, error) {
	text, err := q.resources.GetScriptFromFile(name)
	if err != nil {
		return "", err
	}
	out, err := q.replacer.Replace(text)
	if err != nil {
		return "", fmt.Errorf("failed to substitute tokens in %s: %w", name, err)
	}
	return strings.TrimSpace(out), nil
}

func (a AppliedChanges) add(entry ChangeLogEntry) {
	a[migration.Key(entry.ChangeNumber)] = entry
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// toTime accepts the date representations drivers hand back for a
// completion date column.
func toTime(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t, nil
	case []byte:
		return parseTime(string(t))
	case string:
		return parseTime(t)
	default:
		return time.Time{}, fmt.Errorf("unsupported date value of type %T", v)
	}
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func logLoaded(logger zerolog.Logger, applied AppliedChanges) {
	logger.Debug().Int("count", len(applied)).Msg("Loaded changelog")
}
