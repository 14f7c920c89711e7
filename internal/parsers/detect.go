package parsers

import (
	"mime"
	"path/filepath"
	"strings"
)

// Common MIME types.
const (
	MIMEPlainText = "text/plain"
	MIMEMarkdown  = "text/markdown"
	MIMECSV       = "text/csv"
	MIMEJSON      = "application/json"
	MIMEHTML      = "text/html"
	MIMEXHTML     = "application/xhtml+xml"
	MIMEPDF       = "application/pdf"
	MIMEDOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var extensionTypes = map[string]string{
	".txt":  MIMEPlainText,
	".text": MIMEPlainText,
	".log":  MIMEPlainText,
	".md":   MIMEMarkdown,
	".csv":  MIMECSV,
	".json": MIMEJSON,
	".html": MIMEHTML,
	".htm":  MIMEHTML,
	".pdf":  MIMEPDF,
	".docx": MIMEDOCX,
}

// DetectType maps a filename to a MIME type by extension.
// Returns an empty string for unknown extensions.
func DetectType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if mt, ok := extensionTypes[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		return stripParams(mt)
	}
	return ""
}

// ResolveType normalises a declared type, which may be a MIME type with
// parameters, a bare extension ("pdf", ".pdf") or a filename.
func ResolveType(declared string) string {
	declared = strings.TrimSpace(strings.ToLower(declared))
	if declared == "" {
		return ""
	}
	if strings.Contains(declared, "/") {
		return stripParams(declared)
	}
	if !strings.HasPrefix(declared, ".") && !strings.Contains(declared, ".") {
		declared = "." + declared
	}
	return DetectType(declared)
}

func stripParams(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.TrimSpace(mt)
}

// TitleFromFilename turns "my_lease-2024.pdf" into "my lease 2024".
func TitleFromFilename(name string) string {
	filename := filepath.Base(name)
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
