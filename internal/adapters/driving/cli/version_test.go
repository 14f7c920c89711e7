package cli

import (
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withVersion(t *testing.T, v string) {
	t.Helper()
	original := version
	SetVersion(v)
	t.Cleanup(func() { version = original })
}

func TestVersionCmd(t *testing.T) {
	withVersion(t, "1.4.0")

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "aegis version 1.4.0\n")
	assert.Contains(t, out, "go:       "+runtime.Version())
	assert.Contains(t, out, "platform: "+runtime.GOOS+"/"+runtime.GOARCH)
}

func TestVersionCmd_JSON(t *testing.T) {
	withVersion(t, "1.4.0")

	out, err := execute(t, "version", "--json")
	require.NoError(t, err)

	var got buildDetails
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "1.4.0", got.Version)
	assert.Equal(t, runtime.Version(), got.Go)
}

func TestVersionCmd_RejectsArgs(t *testing.T) {
	_, err := execute(t, "version", "extra")
	assert.Error(t, err)
}

func TestSetVersion_EmptyKeepsCurrent(t *testing.T) {
	withVersion(t, "2.0.0")
	SetVersion("")
	assert.Equal(t, "2.0.0", version)
}
