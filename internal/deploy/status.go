package deploy

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sqldeploy/sqldeploy/internal/migration"
	"github.com/sqldeploy/sqldeploy/internal/schema"
)

// ScriptStatus pairs a discovered script with its changelog entry, if any.
type ScriptStatus struct {
	Script  *migration.ScriptFile
	Applied bool
	Pending bool
	Entry   *schema.ChangeLogEntry
}

// Status reports every discovered script in ascending order. With a nil
// ledger nothing is read from the database and every script is reported as
// not applied. Pending honours the ceiling the same way Run does.
func Status(ctx context.Context, repo Discoverer, ledger Ledger, ceiling decimal.NullDecimal) ([]ScriptStatus, error) {
	scripts, err := repo.Scan()
	if err != nil {
		return nil, err
	}
	if len(scripts) == 0 {
		return nil, nil
	}

	applied := schema.AppliedChanges{}
	if ledger != nil {
		if applied, err = ledger.GetAppliedChanges(ctx); err != nil {
			return nil, err
		}
	}

	pending := make(map[string]bool)
	for _, sf := range migration.GetPendingChanges(scripts, applied, ceiling) {
		pending[migration.Key(sf.ID)] = true
	}

	out := make([]ScriptStatus, 0, len(scripts))
	for _, sf := range scripts.Sorted() {
		st := ScriptStatus{Script: sf, Pending: pending[migration.Key(sf.ID)]}
		if entry, ok := applied[migration.Key(sf.ID)]; ok {
			e := entry
			st.Applied = true
			st.Entry = &e
		}
		out = append(out, st)
	}
	return out, nil
}
