// Package deploy sequences one generation run: clean previous outputs,
// discover scripts, diff them against the changelog, assemble the change and
// undo scripts and write them out.
package deploy

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sqldeploy/sqldeploy/internal/migration"
	"github.com/sqldeploy/sqldeploy/internal/schema"
)

// Outputs writes and removes the generated files.
type Outputs interface {
	WriteFile(p, content string) error
	Remove(p string) error
}

// cacheResetter is implemented by outputs that memoize reads for one run.
type cacheResetter interface {
	ResetCache()
}

// Discoverer finds the scripts of a run and renders their listing.
type Discoverer interface {
	Scan() (migration.Scripts, error)
	WriteListing(scripts migration.Scripts) string
}

// Ledger reports the changes already applied to the target.
type Ledger interface {
	GetAppliedChanges(ctx context.Context) (schema.AppliedChanges, error)
}

// Builder assembles the change and undo scripts.
type Builder interface {
	BuildChangeScript(pending []*migration.ScriptFile) (string, error)
	BuildUndoScript(pending []*migration.ScriptFile) (string, error)
}

// Options names the output files and the optional ceiling.
type Options struct {
	OutputFile     string
	UndoOutputFile string
	ListingFile    string
	Ceiling        decimal.NullDecimal
}

// Result describes what a run produced.
type Result struct {
	RunID          string
	Discovered     int
	Pending        []*migration.ScriptFile
	ListingWritten bool
	ScriptsWritten bool
}

type Deployer struct {
	outputs   Outputs
	repo      Discoverer
	ledger    Ledger
	assembler Builder
	opts      Options
	logger    zerolog.Logger
}

func NewDeployer(outputs Outputs, repo Discoverer, ledger Ledger, assembler Builder, opts Options, logger zerolog.Logger) *Deployer {
	return &Deployer{
		outputs:   outputs,
		repo:      repo,
		ledger:    ledger,
		assembler: assembler,
		opts:      opts,
		logger:    logger,
	}
}

// Run performs one generation. Any error aborts the run; files removed during
// cleanup and a listing already written are left as they are.
func (d *Deployer) Run(ctx context.Context) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	log := d.logger.With().Str("run_id", res.RunID).Logger()

	if c, ok := d.outputs.(cacheResetter); ok {
		c.ResetCache()
	}

	if err := d.cleanup(log); err != nil {
		return nil, err
	}

	scripts, err := d.repo.Scan()
	if err != nil {
		return nil, err
	}
	res.Discovered = len(scripts)

	if len(scripts) == 0 {
		log.Info().Msg("No scripts found, nothing to do")
		return res, nil
	}
	log.Info().Int("count", len(scripts)).Msg("Discovered scripts")

	if err := d.outputs.WriteFile(d.opts.ListingFile, d.repo.WriteListing(scripts)); err != nil {
		return nil, err
	}
	res.ListingWritten = true
	log.Debug().Str("path", d.opts.ListingFile).Msg("Wrote script listing")

	applied, err := d.ledger.GetAppliedChanges(ctx)
	if err != nil {
		return nil, err
	}

	pending := migration.GetPendingChanges(scripts, applied, d.opts.Ceiling)
	res.Pending = pending

	ev := log.Info().Int("applied", len(applied)).Int("pending", len(pending))
	if d.opts.Ceiling.Valid {
		ev = ev.Str("last_change", d.opts.Ceiling.Decimal.String())
	}
	ev.Msg("Resolved pending changes")

	if len(pending) == 0 {
		log.Info().Msg("Database is up to date, no change script written")
		return res, nil
	}

	change, err := d.assembler.BuildChangeScript(pending)
	if err != nil {
		return nil, err
	}
	undo, err := d.assembler.BuildUndoScript(pending)
	if err != nil {
		return nil, err
	}

	if err := d.outputs.WriteFile(d.opts.OutputFile, change); err != nil {
		return nil, err
	}
	if err := d.outputs.WriteFile(d.opts.UndoOutputFile, undo); err != nil {
		return nil, err
	}
	res.ScriptsWritten = true

	log.Info().
		Str("change", d.opts.OutputFile).
		Str("undo", d.opts.UndoOutputFile).
		Str("from", pending[0].ID.String()).
		Str("to", pending[len(pending)-1].ID.String()).
		Msg("Wrote change and undo scripts")

	return res, nil
}

func (d *Deployer) cleanup(log zerolog.Logger) error {
	for _, p := range []string{d.opts.OutputFile, d.opts.UndoOutputFile, d.opts.ListingFile} {
		if p == "" {
			continue
		}
		if err := d.outputs.Remove(p); err != nil {
			return err
		}
	}
	log.Debug().Msg("Removed previous outputs")
	return nil
}
