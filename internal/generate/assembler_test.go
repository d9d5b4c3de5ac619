package generate

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqldeploy/sqldeploy/internal/migration"
	"github.com/sqldeploy/sqldeploy/internal/resource"
	"github.com/sqldeploy/sqldeploy/internal/token"
)

type fakeResources map[resource.Name]string

func (f fakeResources) GetScriptFromFile(name resource.Name) (string, error) {
	text, ok := f[name]
	if !ok {
		return "", &resource.TemplateResourceError{Name: name, Err: errors.New("missing")}
	}
	return text, nil
}

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

type builder struct{}

func (builder) Name() string { return "builder" }

func testTemplates() fakeResources {
	return fakeResources{
		resource.UndoToken:          "--//@Undo\n",
		resource.ChangeScriptHeader: "<CSH v=$(CURRENT_VERSION)>",
		resource.ScriptHeader:       "<SH $(SCRIPT_ID)>",
		resource.ScriptFooter:       "<SF $(SCRIPT_ID) $(SCRIPT_DESCRIPTION)>",
		resource.ChangeScriptFooter: "<CSF v=$(CURRENT_VERSION) id=$(SCRIPT_ID) at=$(CURRENT_DATETIME)>",
		resource.UndoScriptHeader:   "<USH v=$(CURRENT_VERSION)>",
		resource.UndoHeader:         "<UH $(SCRIPT_ID)>",
		resource.UndoFooter:         "<UF $(SCRIPT_ID)>",
		resource.UndoScriptFooter:   "<USF v=$(CURRENT_VERSION) id=$(SCRIPT_ID)>",
	}
}

func newTestAssembler(res Resources) *Assembler {
	r := token.NewReplacer(token.Settings{SchemaName: "dbo", ChangeLogTable: "ChangeLog"}, fixedClock{}, builder{})
	return NewAssembler(res, r, zerolog.Nop())
}

func script(id, desc, contents string) *migration.ScriptFile {
	return &migration.ScriptFile{
		ID:          decimal.RequireFromString(id),
		Description: desc,
		FileName:    id + " " + desc + ".sql",
		Contents:    contents,
	}
}

func TestBuildChangeScript_EndToEnd(t *testing.T) {
	a := newTestAssembler(testTemplates())
	pending := []*migration.ScriptFile{
		script("1", "one", "A"),
		script("2", "two", "B--//@UndoUB"),
	}

	got, err := a.BuildChangeScript(pending)
	require.NoError(t, err)
	assert.Equal(t,
		"<CSH v=0>"+
			"<SH 1>A<SF 1 one>"+
			"<SH 2>B<SF 2 two>"+
			"<CSF v=0 id=0 at=2024-01-02 03:04:05>",
		got)
}

func TestBuildUndoScript_EndToEnd(t *testing.T) {
	a := newTestAssembler(testTemplates())
	pending := []*migration.ScriptFile{
		script("1", "one", "A"),
		script("2", "two", "B--//@UndoUB"),
	}

	got, err := a.BuildUndoScript(pending)
	require.NoError(t, err)
	assert.Equal(t,
		"<USH v=2>"+
			"<UH 2>UB<UF 2>"+
			"<USF v=2 id=0>",
		got)
}

func TestBuildUndoScript_DescendingOrder(t *testing.T) {
	a := newTestAssembler(testTemplates())
	pending := []*migration.ScriptFile{
		script("3", "c", "C--//@UndoUC"),
		script("10", "j", "J--//@UndoUJ"),
		script("7", "g", "G"),
		script("5", "e", "E--//@UndoUE"),
	}

	got, err := a.BuildUndoScript(pending)
	require.NoError(t, err)
	assert.Equal(t,
		"<USH v=10>"+
			"<UH 10>UJ<UF 10>"+
			"<UH 5>UE<UF 5>"+
			"<UH 3>UC<UF 3>"+
			"<USF v=10 id=0>",
		got)
}

func TestBuildChangeScript_AscendingRegardlessOfInputOrder(t *testing.T) {
	a := newTestAssembler(testTemplates())
	pending := []*migration.ScriptFile{
		script("10", "j", "J"),
		script("9", "i", "I"),
	}

	got, err := a.BuildChangeScript(pending)
	require.NoError(t, err)
	assert.Equal(t, "<CSH v=8><SH 9>I<SF 9 i><SH 10>J<SF 10 j><CSF v=8 id=0 at=2024-01-02 03:04:05>", got)
}

// The change script binds the lowest pending id minus one while the undo
// script binds the highest pending id. Both are pinned here.
func TestCurrentVersion_ChangeIsMinMinusOne(t *testing.T) {
	res := fakeResources{
		resource.UndoToken:          "--//@Undo",
		resource.ChangeScriptHeader: "$(CURRENT_VERSION)",
		resource.ScriptHeader:       "",
		resource.ScriptFooter:       "",
		resource.ChangeScriptFooter: "|$(CURRENT_VERSION)",
	}
	a := newTestAssembler(res)

	got, err := a.BuildChangeScript([]*migration.ScriptFile{script("6", "x", ""), script("9", "y", "")})
	require.NoError(t, err)
	assert.Equal(t, "5|5", got)

	got, err = a.BuildChangeScript([]*migration.ScriptFile{script("1.5", "x", "")})
	require.NoError(t, err)
	assert.Equal(t, "0.5|0.5", got)
}

func TestCurrentVersion_UndoIsMax(t *testing.T) {
	res := fakeResources{
		resource.UndoToken:        "--//@Undo",
		resource.UndoScriptHeader: "$(CURRENT_VERSION)",
		resource.UndoScriptFooter: "|$(CURRENT_VERSION)",
	}
	a := newTestAssembler(res)

	got, err := a.BuildUndoScript([]*migration.ScriptFile{script("6", "x", ""), script("9", "y", "")})
	require.NoError(t, err)
	assert.Equal(t, "9|9", got)

	got, err = a.BuildUndoScript([]*migration.ScriptFile{script("4", "x", "")})
	require.NoError(t, err)
	assert.Equal(t, "4|4", got)
}

func TestSplitUndo(t *testing.T) {
	tests := []struct {
		name        string
		contents    string
		wantForward string
		wantUndo    string
		wantOK      bool
	}{
		{"inline delimiter", "B--//@UndoUB", "B", "UB", true},
		{"no delimiter", "CREATE TABLE t;", "CREATE TABLE t;", "", false},
		{"first occurrence wins", "A--//@UndoB--//@UndoC", "A", "B--//@UndoC", true},
		{"delimiter at start", "--//@Undo\nDROP TABLE t;", "", "\nDROP TABLE t;", true},
		{"delimiter at end", "CREATE TABLE t;\n--//@Undo", "CREATE TABLE t;\n", "", true},
		{"empty", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forward, undo, ok := SplitUndo(tt.contents, "--//@Undo")
			assert.Equal(t, tt.wantForward, forward)
			assert.Equal(t, tt.wantUndo, undo)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestBuild_EmptyPending(t *testing.T) {
	a := newTestAssembler(testTemplates())

	_, err := a.BuildChangeScript(nil)
	assert.ErrorIs(t, err, ErrNoPendingScripts)

	_, err = a.BuildUndoScript(nil)
	assert.ErrorIs(t, err, ErrNoPendingScripts)
}

func TestBuild_MissingTemplate(t *testing.T) {
	res := testTemplates()
	delete(res, resource.ScriptFooter)
	a := newTestAssembler(res)

	_, err := a.BuildChangeScript([]*migration.ScriptFile{script("1", "one", "A")})
	var tre *resource.TemplateResourceError
	require.True(t, errors.As(err, &tre))
	assert.Equal(t, resource.ScriptFooter, tre.Name)
}

func TestBuild_EmptyUndoToken(t *testing.T) {
	res := testTemplates()
	res[resource.UndoToken] = " \n"
	a := newTestAssembler(res)

	_, err := a.BuildUndoScript([]*migration.ScriptFile{script("1", "one", "A")})
	var tre *resource.TemplateResourceError
	require.True(t, errors.As(err, &tre))
	assert.Equal(t, resource.UndoToken, tre.Name)
}

func TestBuild_SanitizesDescriptions(t *testing.T) {
	a := newTestAssembler(testTemplates())

	got, err := a.BuildChangeScript([]*migration.ScriptFile{script("1", "it's; done", "A")})
	require.NoError(t, err)
	assert.Contains(t, got, "<SF 1 it''s_ done>")
}
