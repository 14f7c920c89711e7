package plaintext

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

func TestNew(t *testing.T) {
	parser := New()
	require.NotNil(t, parser)
	assert.IsType(t, &Parser{}, parser)
}

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()

	assert.Contains(t, mimeTypes, "text/plain")
	assert.Contains(t, mimeTypes, "text/markdown")
	assert.Contains(t, mimeTypes, "application/json")
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 5, New().Priority())
}

func TestParse_Success(t *testing.T) {
	result, err := New().Parse(context.Background(), []byte("\ufeff# Lease Agreement\r\nThe tenant shall pay rent.\r\n"))
	require.NoError(t, err)

	assert.Equal(t, "# Lease Agreement\nThe tenant shall pay rent.\n", result.Text)
	assert.Equal(t, "Lease Agreement", result.Title)
	assert.Equal(t, 1, result.PageCount)
	assert.False(t, result.UsedOCR)
}

func TestParse_InvalidUTF8(t *testing.T) {
	result, err := New().Parse(context.Background(), []byte{0xff, 0xfe, 0xfd})
	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrParseFailure)

	var pe *domain.ParseError
	require.ErrorAs(t, err, &pe)
	assert.NotEmpty(t, pe.Hints)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "Title", firstLine("\n\n  Title  \nbody"))
	assert.Equal(t, "", firstLine(""))
	assert.Equal(t, "", firstLine(strings.Repeat("x", 201)))
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Parser = (*Parser)(nil)
}
