package migration

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// LineEnding is the terminator every script and template is normalized to.
const LineEnding = "\n"

var lineBreaks = regexp.MustCompile(`\r\n|\r|\n`)

// FileReader supplies script contents.
type FileReader interface {
	ReadFile(path string, useCache bool) (string, error)
}

// Parser turns a script path into a ScriptFile.
type Parser struct {
	pattern   *regexp.Regexp
	idGroup   int
	descGroup int
}

// NewParser compiles the filename pattern. Named groups "id" and
// "description" are used when present; otherwise group 1 is the id and the
// last group, if there is more than one, is the description.
func NewParser(pattern string) (*Parser, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid filename pattern %q: %w", pattern, err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("filename pattern %q must capture the change number in a group", pattern)
	}

	p := &Parser{pattern: re, idGroup: 1, descGroup: -1}
	if re.NumSubexp() >= 2 {
		p.descGroup = re.NumSubexp()
	}
	if i := re.SubexpIndex("id"); i > 0 {
		p.idGroup = i
	}
	if i := re.SubexpIndex("description"); i > 0 {
		p.descGroup = i
	}
	return p, nil
}

// Pattern returns the source of the filename pattern.
func (p *Parser) Pattern() string {
	return p.pattern.String()
}

// ParseName extracts the change number and description from a path without
// reading the file.
func (p *Parser) ParseName(path string) (decimal.Decimal, string, error) {
	fileName := strings.TrimSpace(path)
	base := filepath.Base(fileName)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	matches := p.pattern.FindStringSubmatch(base)
	if matches == nil || matches[p.idGroup] == "" {
		return decimal.Decimal{}, "", &ScriptFormatError{FileName: fileName, Pattern: p.Pattern()}
	}

	id, err := decimal.NewFromString(matches[p.idGroup])
	if err != nil {
		return decimal.Decimal{}, "", &ScriptFormatError{FileName: fileName, Pattern: p.Pattern(), Err: err}
	}

	var description string
	if p.descGroup > 0 && p.descGroup != p.idGroup {
		description = matches[p.descGroup]
	}
	return id, description, nil
}

// Parse reads and normalizes the script at path.
func (p *Parser) Parse(files FileReader, path string) (*ScriptFile, error) {
	id, description, err := p.ParseName(path)
	if err != nil {
		return nil, err
	}

	fileName := strings.TrimSpace(path)
	raw, err := files.ReadFile(fileName, false)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", fileName, err)
	}

	contents := NormalizeContent(raw)
	return &ScriptFile{
		ID:          id,
		Description: description,
		FileName:    fileName,
		Contents:    contents,
		Checksum:    CalculateChecksum(contents),
	}, nil
}

// NormalizeContent strips a UTF-8 BOM and rewrites every line terminator to
// LineEnding.
func NormalizeContent(raw string) string {
	raw = strings.TrimPrefix(raw, "\xef\xbb\xbf")
	return lineBreaks.ReplaceAllString(raw, LineEnding)
}
