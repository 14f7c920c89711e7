// Package parsers provides the Parser implementations that turn uploaded
// bytes into plain text, and the Registry that selects between them.
//
// Each parser knows how to extract text from specific MIME types. Parsers
// are registered with the Registry at startup; the Registry resolves file
// extensions to MIME types, enforces the upload size cap and dispatches to
// the highest-priority parser for the type.
package parsers
