// Package sqldeploy provides an embeddable change script generator for use
// as a Go library in your applications.
//
// Example usage:
//
//	g, err := sqldeploy.New(
//	    sqldeploy.WithDBMS("postgres"),
//	    sqldeploy.WithConnectionString("postgres://app@localhost/app"),
//	    sqldeploy.WithScriptsDir("./db/changes"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer g.Close()
//
//	res, err := g.Generate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
package sqldeploy

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/sqldeploy/sqldeploy/internal/config"
	"github.com/sqldeploy/sqldeploy/internal/deploy"
)

type (
	Result       = deploy.Result
	ScriptStatus = deploy.ScriptStatus
)

type Generator struct {
	ctx    *deploy.ExecutionContext
	config *config.Config
	logger zerolog.Logger
}

func New(opts ...Option) (*Generator, error) {
	o := &options{cfg: config.Default()}
	for _, opt := range opts {
		opt(o)
	}

	cfg := o.cfg
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	if o.logger != nil {
		logger = *o.logger
	}

	ctx, err := deploy.NewExecutionContext(cfg, o.fs, logger)
	if err != nil {
		return nil, err
	}

	return &Generator{
		ctx:    ctx,
		config: cfg,
		logger: logger,
	}, nil
}

// Generate writes the change script, undo script and listing for every
// pending change.
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	d, err := g.ctx.Deployer()
	if err != nil {
		return nil, err
	}
	return d.Run(ctx)
}

// Status reports every discovered script with its applied and pending state.
func (g *Generator) Status(ctx context.Context) ([]ScriptStatus, error) {
	ceiling, err := g.config.Ceiling()
	if err != nil {
		return nil, err
	}
	g.ctx.Files.ResetCache()
	return deploy.Status(ctx, g.ctx.Repository, g.ctx.Ledger, ceiling)
}

func (g *Generator) Close() error {
	return g.ctx.Close()
}
