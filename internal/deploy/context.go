package deploy

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/sqldeploy/sqldeploy/internal/config"
	"github.com/sqldeploy/sqldeploy/internal/fsys"
	"github.com/sqldeploy/sqldeploy/internal/generate"
	"github.com/sqldeploy/sqldeploy/internal/migration"
	"github.com/sqldeploy/sqldeploy/internal/resource"
	"github.com/sqldeploy/sqldeploy/internal/schema"
	"github.com/sqldeploy/sqldeploy/internal/token"
)

// ExecutionContext wires the components of one run from a validated Config.
type ExecutionContext struct {
	Config     *config.Config
	Files      *fsys.FileService
	Repository *migration.Repository
	Resources  *resource.Provider
	Replacer   *token.Replacer
	Assembler  *generate.Assembler
	Ledger     schema.Reader
	Logger     zerolog.Logger
}

// NewExecutionContext builds every component for cfg on top of fs. A nil fs
// means the operating system filesystem. The ledger connects lazily, so no
// database is contacted here.
func NewExecutionContext(cfg *config.Config, fs afero.Fs, logger zerolog.Logger) (*ExecutionContext, error) {
	dbms, err := config.ParseDBMS(cfg.DBMS)
	if err != nil {
		return nil, err
	}

	parser, err := migration.NewParser(cfg.FilenamePattern)
	if err != nil {
		return nil, err
	}

	files := fsys.New(fs)
	repo := migration.NewRepository(files, parser, migration.RepositoryOptions{
		RootDir:       cfg.ScriptsDir,
		SearchPattern: cfg.SearchPattern,
		Recursive:     cfg.Recursive,
	}, logger)

	resources := resource.NewProvider(dbms, cfg.TemplatesDir, files, logger)
	replacer := token.NewReplacer(token.Settings{
		SchemaName:     cfg.SchemaName,
		ChangeLogTable: cfg.ChangeLogTable,
	}, nil, nil)

	ledger, err := schema.NewReader(cfg, resources, replacer, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create changelog reader: %w", err)
	}

	return &ExecutionContext{
		Config:     cfg,
		Files:      files,
		Repository: repo,
		Resources:  resources,
		Replacer:   replacer,
		Assembler:  generate.NewAssembler(resources, replacer, logger),
		Ledger:     ledger,
		Logger:     logger,
	}, nil
}

// Deployer returns an orchestrator over this context's components.
func (ec *ExecutionContext) Deployer() (*Deployer, error) {
	ceiling, err := ec.Config.Ceiling()
	if err != nil {
		return nil, err
	}

	return NewDeployer(ec.Files, ec.Repository, ec.Ledger, ec.Assembler, Options{
		OutputFile:     ec.Config.OutputFile,
		UndoOutputFile: ec.Config.UndoOutputFile,
		ListingFile:    ec.Config.ListingFile,
		Ceiling:        ceiling,
	}, ec.Logger), nil
}

func (ec *ExecutionContext) Close() error {
	return ec.Ledger.Close()
}
