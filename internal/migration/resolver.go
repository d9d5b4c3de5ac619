package migration

import "github.com/shopspring/decimal"

// GetPendingChanges returns the discovered scripts not yet in applied, in
// ascending id order. When ceiling is valid the walk stops at the first
// unapplied id above it; later ids are excluded even if they would qualify.
func GetPendingChanges[V any](discovered Scripts, applied map[string]V, ceiling decimal.NullDecimal) []*ScriptFile {
	var pending []*ScriptFile

	for _, sf := range discovered.Sorted() {
		if _, done := applied[Key(sf.ID)]; done {
			continue
		}
		if ceiling.Valid && sf.ID.GreaterThan(ceiling.Decimal) {
			break
		}
		pending = append(pending, sf)
	}

	return pending
}
