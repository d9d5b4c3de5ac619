package migration

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultPattern = `^(\d+)\s*(.*)$`

type memFiles map[string]string

func (m memFiles) ReadFile(path string, useCache bool) (string, error) {
	content, ok := m[path]
	if !ok {
		return "", fmt.Errorf("open %s: file does not exist", path)
	}
	return content, nil
}

func (m memFiles) GetFiles(root, pattern string, recursive bool) ([]string, error) {
	var out []string
	for p := range m {
		out = append(out, p)
	}
	return out, nil
}

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	p, err := NewParser(defaultPattern)
	require.NoError(t, err)
	return p
}

func TestParseName(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantID   string
		wantDesc string
		wantErr  bool
	}{
		{
			name:     "leading zeros are insignificant",
			path:     "00001 Script.sql",
			wantID:   "1",
			wantDesc: "Script",
		},
		{
			name:   "id only",
			path:   "42.sql",
			wantID: "42",
		},
		{
			name:     "interior whitespace kept in description",
			path:     "/scripts/7 Add  the   index.sql",
			wantID:   "7",
			wantDesc: "Add  the   index",
		},
		{
			name:     "separator run is dropped",
			path:     "8    Padded.sql",
			wantID:   "8",
			wantDesc: "Padded",
		},
		{
			name:     "no separator",
			path:     "9create.sql",
			wantID:   "9",
			wantDesc: "create",
		},
		{
			name:    "no leading digits",
			path:    "My Script.sql",
			wantErr: true,
		},
		{
			name:    "digits not at the start",
			path:    "V001__create.sql",
			wantErr: true,
		},
	}

	p := newTestParser(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, desc, err := p.ParseName(tt.path)
			if tt.wantErr {
				var sfe *ScriptFormatError
				require.True(t, errors.As(err, &sfe))
				assert.Contains(t, sfe.Error(), tt.path)
				assert.Equal(t, defaultPattern, sfe.Pattern)
				return
			}
			require.NoError(t, err)
			assert.True(t, id.Equal(decimal.RequireFromString(tt.wantID)), "got id %s", id)
			assert.Equal(t, tt.wantDesc, desc)
		})
	}
}

func TestParseName_FractionalPattern(t *testing.T) {
	p, err := NewParser(`^(\d+(?:\.\d+)?)\s*(.*)$`)
	require.NoError(t, err)

	id, desc, err := p.ParseName("1.5 Hotfix.sql")
	require.NoError(t, err)
	assert.Equal(t, "1.5", id.String())
	assert.Equal(t, "Hotfix", desc)
}

func TestParseName_NamedGroups(t *testing.T) {
	p, err := NewParser(`^(?P<description>[a-z_]+)-(?P<id>\d+)$`)
	require.NoError(t, err)

	id, desc, err := p.ParseName("add_users-0012.sql")
	require.NoError(t, err)
	assert.Equal(t, "12", id.String())
	assert.Equal(t, "add_users", desc)
}

func TestNewParser_Invalid(t *testing.T) {
	_, err := NewParser(`^(\d+`)
	assert.Error(t, err)

	_, err = NewParser(`^\d+`)
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	files := memFiles{
		"/scripts/3 Users  table.sql": "\xef\xbb\xbfCREATE TABLE users;\r\nGO\rSELECT 1;\n",
	}

	sf, err := newTestParser(t).Parse(files, "  /scripts/3 Users  table.sql  ")
	require.NoError(t, err)

	assert.Equal(t, "3", sf.ID.String())
	assert.Equal(t, "Users  table", sf.Description)
	assert.Equal(t, "/scripts/3 Users  table.sql", sf.FileName)
	assert.Equal(t, "CREATE TABLE users;\nGO\nSELECT 1;\n", sf.Contents)
	assert.Equal(t, CalculateChecksum(sf.Contents), sf.Checksum)
}

func TestParse_ReadFailure(t *testing.T) {
	_, err := newTestParser(t).Parse(memFiles{}, "/scripts/1 gone.sql")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 gone.sql")
}

func TestNormalizeContent(t *testing.T) {
	assert.Equal(t, "a\nb\nc\nd", NormalizeContent("a\r\nb\rc\nd"))
	assert.Equal(t, "\n\n", NormalizeContent("\r\r\n"))
}
