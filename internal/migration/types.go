package migration

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ScriptFile is one numbered change script discovered on disk.
type ScriptFile struct {
	ID          decimal.Decimal
	Description string
	FileName    string
	Contents    string
	Checksum    string
}

// Scripts maps Key(id) to the script carrying that id.
type Scripts map[string]*ScriptFile

// Key returns the canonical map key for a change number, so that "1", "01"
// and "1.0" all address the same entry.
func Key(id decimal.Decimal) string {
	return id.String()
}

// Sorted returns the scripts in ascending id order.
func (s Scripts) Sorted() []*ScriptFile {
	out := make([]*ScriptFile, 0, len(s))
	for _, sf := range s {
		out = append(out, sf)
	}
	sortAsc(out)
	return out
}

func sortAsc(scripts []*ScriptFile) {
	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].ID.LessThan(scripts[j].ID)
	})
}

func sortDesc(scripts []*ScriptFile) {
	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].ID.GreaterThan(scripts[j].ID)
	})
}

// Descending returns a copy of scripts ordered by descending id.
func Descending(scripts []*ScriptFile) []*ScriptFile {
	out := append([]*ScriptFile(nil), scripts...)
	sortDesc(out)
	return out
}

// Ascending returns a copy of scripts ordered by ascending id.
func Ascending(scripts []*ScriptFile) []*ScriptFile {
	out := append([]*ScriptFile(nil), scripts...)
	sortAsc(out)
	return out
}
