package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectType(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"lease.pdf", MIMEPDF},
		{"LEASE.PDF", MIMEPDF},
		{"notes.md", MIMEMarkdown},
		{"contract.docx", MIMEDOCX},
		{"page.htm", MIMEHTML},
		{"ledger.csv", MIMECSV},
		{"readme", ""},
		{"archive.unknownext", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectType(tt.filename))
		})
	}
}

func TestResolveType(t *testing.T) {
	tests := []struct {
		declared string
		want     string
	}{
		{"application/pdf", MIMEPDF},
		{"Text/HTML; charset=UTF-8", MIMEHTML},
		{"pdf", MIMEPDF},
		{".docx", MIMEDOCX},
		{"statement.txt", MIMEPlainText},
		{"  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveType(tt.declared))
		})
	}
}

func TestTitleFromFilename(t *testing.T) {
	assert.Equal(t, "my lease 2024", TitleFromFilename("/tmp/my_lease-2024.pdf"))
	assert.Equal(t, "plain", TitleFromFilename("plain"))
}
