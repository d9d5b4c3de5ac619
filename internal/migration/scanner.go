package migration

import (
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ListingPreamble heads every script listing.
var ListingPreamble = []string{
	"-- This file is generated automatically. Do not edit it by hand.",
	"-- It lists every change script found in the scripts directory,",
	"-- in the order the scripts are applied (ascending change number).",
	"--",
}

// FileService enumerates and reads candidate scripts.
type FileService interface {
	FileReader
	GetFiles(root, pattern string, recursive bool) ([]string, error)
}

// RepositoryOptions says where scripts live and how they are named.
type RepositoryOptions struct {
	RootDir       string
	SearchPattern string
	Recursive     bool
}

// Repository discovers the change scripts of one run.
type Repository struct {
	files  FileService
	parser *Parser
	opts   RepositoryOptions
	logger zerolog.Logger
}

func NewRepository(files FileService, parser *Parser, opts RepositoryOptions, logger zerolog.Logger) *Repository {
	return &Repository{
		files:  files,
		parser: parser,
		opts:   opts,
		logger: logger,
	}
}

// Scan parses every candidate file. A repeated change number aborts the scan.
func (r *Repository) Scan() (Scripts, error) {
	paths, err := r.files.GetFiles(r.opts.RootDir, r.opts.SearchPattern, r.opts.Recursive)
	if err != nil {
		return nil, err
	}

	scripts := make(Scripts, len(paths))
	for _, p := range paths {
		sf, err := r.parser.Parse(r.files, p)
		if err != nil {
			return nil, err
		}

		key := Key(sf.ID)
		if existing, ok := scripts[key]; ok {
			return nil, &DuplicateScriptIDError{
				ID:               sf.ID,
				FileName:         sf.FileName,
				ExistingFileName: existing.FileName,
			}
		}
		scripts[key] = sf

		r.logger.Debug().
			Str("id", key).
			Str("file", sf.FileName).
			Msg("Discovered script")
	}

	return scripts, nil
}

// WriteListing renders the audit listing: the preamble followed by each
// script's path relative to the root directory, in ascending id order.
func (r *Repository) WriteListing(scripts Scripts) string {
	var b strings.Builder
	for _, line := range ListingPreamble {
		b.WriteString(line)
		b.WriteString(LineEnding)
	}
	for _, sf := range scripts.Sorted() {
		b.WriteString(r.relativePath(sf.FileName))
		b.WriteString(LineEnding)
	}
	return b.String()
}

func (r *Repository) relativePath(p string) string {
	root := filepath.Clean(r.opts.RootDir)
	clean := filepath.Clean(p)
	if root != "." && strings.HasPrefix(clean, root) {
		clean = strings.TrimPrefix(clean, root)
		clean = strings.TrimLeft(clean, `/\`)
	}
	return filepath.ToSlash(clean)
}

// NextID returns the change number a new script should take: one more than
// the integer part of the highest existing id, or 1 when there are none.
func NextID(scripts Scripts) decimal.Decimal {
	next := decimal.NewFromInt(1)
	for _, sf := range scripts {
		candidate := sf.ID.Floor().Add(decimal.NewFromInt(1))
		if candidate.GreaterThan(next) {
			next = candidate
		}
	}
	return next
}
