// Package core turns delimited text files into geoscience object drafts
// and validates them before they are handed to a persistence sink.
//
// This package is independent of any transport: the HTTP server, the CLI
// and tests all drive it through [Controller.Build].
//
// # Pipeline
//
// A build request is processed synchronously, one stage at a time:
//
//  1. Load: every file named in csv_files is read into a [Table]
//     ([LoadTableFile]). Column types are inferred from a row sample.
//  2. Resolve: the column_mapping is decoded into the variant registered
//     for the object type and bound onto the loaded headers
//     ([ResolveMapping]). Either every role resolves or the request fails.
//  3. Build: the registered builder turns the resolved tables into draft
//     content.
//  4. Validate: structural and referential checks produce a
//     [ValidationReport]. Findings are collected, never raised.
//  5. Persist: unless the request is a dry run, a validated draft is
//     passed to the [Sink] exactly once.
//
// # Object Registry
//
// Object types are registered at init time using [Register]; the
// definitions live in package objects:
//
//	core.Register(core.ObjectDefinition{
//	    Type:          core.ObjectPointset,
//	    SchemaID:      "/objects/pointset/1.0.0/pointset.schema.json",
//	    DecodeMapping: decodePointsetMapping,
//	    Build:         buildPointset,
//	    Validate:      validatePointset,
//	})
//
// # Error Handling
//
// Fatal problems are typed: [MalformedInputError], [MissingColumnError]
// and [PersistenceError], each matching a sentinel via errors.Is.
// [MapError] turns any of them into a coded, user-facing message:
//
//   - FILE001-FILE006: file errors (size, headers, encoding, location)
//   - MAP001-MAP003: column mapping errors
//   - BLD001-BLD004: build errors (object type, non-numeric cells)
//   - STO001-STO003: persistence errors
//   - REQ001-REQ005: request errors (busy, cancelled, malformed request)
package core
