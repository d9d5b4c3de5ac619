package resource

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqldeploy/sqldeploy/internal/config"
	"github.com/sqldeploy/sqldeploy/internal/fsys"
)

func TestProvider_EveryNameResolvesForEveryDBMS(t *testing.T) {
	for _, dbms := range config.AllDBMS {
		p := NewProvider(dbms, "", nil, zerolog.Nop())
		for _, name := range Names {
			t.Run(string(dbms)+"/"+string(name), func(t *testing.T) {
				text, err := p.GetScriptFromFile(name)
				require.NoError(t, err)
				assert.NotEmpty(t, text)
				assert.NotContains(t, text, "\r")
			})
		}
	}
}

func TestProvider_DBMSSpecificWinsOverCommon(t *testing.T) {
	p := NewProvider(config.SQLServer, "", nil, zerolog.Nop())

	footer, err := p.GetScriptFromFile(ScriptFooter)
	require.NoError(t, err)
	assert.Contains(t, footer, "GO")

	src, err := p.Source(ScriptFooter)
	require.NoError(t, err)
	assert.Equal(t, "embedded:templates/sqlserver/ScriptFooter.sql", src)

	src, err = p.Source(ScriptHeader)
	require.NoError(t, err)
	assert.Equal(t, "embedded:templates/common/ScriptHeader.sql", src)
}

func TestProvider_UndoToken(t *testing.T) {
	p := NewProvider(config.Postgres, "", nil, zerolog.Nop())
	text, err := p.GetScriptFromFile(UndoToken)
	require.NoError(t, err)
	assert.Equal(t, "--//@UNDO\n", text)
}

func TestProvider_OverrideDirectory(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/tpl/ScriptHeader.sql", []byte("-- custom\r\nheader"), 0644))
	files := fsys.New(mem)

	p := NewProvider(config.MySQL, "/tpl", files, zerolog.Nop())

	text, err := p.GetScriptFromFile(ScriptHeader)
	require.NoError(t, err)
	assert.Equal(t, "-- custom\nheader", text)

	// not overridden: falls back to embedded
	text, err = p.GetScriptFromFile(GetChangeLog)
	require.NoError(t, err)
	assert.Contains(t, text, "SELECT change_number")

	src, err := p.Source(ScriptHeader)
	require.NoError(t, err)
	assert.Contains(t, src, "ScriptHeader.sql")
	assert.NotContains(t, src, "embedded:")
}

func TestProvider_Unknown(t *testing.T) {
	p := NewProvider(config.SQLite, "", nil, zerolog.Nop())

	_, err := p.GetScriptFromFile(Name("NoSuchTemplate"))
	require.Error(t, err)

	var tre *TemplateResourceError
	require.True(t, errors.As(err, &tre))
	assert.Equal(t, Name("NoSuchTemplate"), tre.Name)
	assert.Equal(t, config.SQLite, tre.DBMS)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = p.Source(Name("NoSuchTemplate"))
	assert.Error(t, err)
}
