// Package objects registers the buildable object types with package core.
//
// Each file defines one type: its column mapping variant, the builder that
// turns resolved tables into content, and the type-specific validation.
// Importing the package for side effects is enough to make every type
// available to [core.Controller]:
//
//	import _ "github.com/JonMunkholm/geobuild/internal/core/objects"
package objects

// Logical table names used in csv_files and column_mapping.
const (
	TablePoints    = "points"
	TableVertices  = "vertices"
	TableSegments  = "segments"
	TableCollar    = "collar"
	TableSurvey    = "survey"
	TableIntervals = "intervals"
)

// IntervalTable returns the logical name of a named interval table of a
// downhole collection.
func IntervalTable(name string) string {
	return TableIntervals + "." + name
}
