package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

func newTestPromptStore(t *testing.T) (*PromptStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "prompts")
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	return store, dir
}

func writePrompt(t *testing.T, dir, name, text string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".txt"), []byte(text), 0o600))
}

func TestNewPromptStore(t *testing.T) {
	store, dir := newTestPromptStore(t)
	assert.Equal(t, dir, store.Dir())

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "constructor must not touch disk")
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	store, err := NewPromptStore("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".aegis", "prompts"), store.Dir())
}

func TestPromptStore_SeedsEveryPrompt(t *testing.T) {
	store, dir := newTestPromptStore(t)

	_, err := store.Load(driven.PromptExtraction)
	require.NoError(t, err)

	for _, name := range driven.AllPrompts() {
		data, err := os.ReadFile(filepath.Join(dir, name+".txt"))
		require.NoError(t, err, name)
		assert.Equal(t, defaultPrompts[name], string(data))
	}
	readme, err := os.ReadFile(filepath.Join(dir, "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "negotiation.txt")

	info, err := os.Stat(filepath.Join(dir, "risk.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestPromptStore_KeepsUserEdits(t *testing.T) {
	store, dir := newTestPromptStore(t)
	writePrompt(t, dir, driven.PromptRisk, "  Rate this: {{document}}\n\n")

	got, err := store.Load(driven.PromptRisk)
	require.NoError(t, err)
	assert.Equal(t, "Rate this: {{document}}", got)

	data, err := os.ReadFile(filepath.Join(dir, "risk.txt"))
	require.NoError(t, err)
	assert.Equal(t, "  Rate this: {{document}}\n\n", string(data), "seeding never overwrites")
}

func TestPromptStore_RejectsPromptWithoutDocument(t *testing.T) {
	store, dir := newTestPromptStore(t)
	writePrompt(t, dir, driven.PromptAction, "List actions from {{context}}")

	got, err := store.Load(driven.PromptAction)
	require.NoError(t, err)
	assert.Equal(t, defaultPrompts[driven.PromptAction], got)
}

func TestPromptStore_DeletedFileFallsBack(t *testing.T) {
	store, dir := newTestPromptStore(t)
	_, err := store.Load(driven.PromptCompliance)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "compliance.txt")))
	store.Reload()

	got, err := store.Load(driven.PromptCompliance)
	require.NoError(t, err)
	assert.Contains(t, got, `"regulations"`)
}

func TestPromptStore_Unknown(t *testing.T) {
	store, dir := newTestPromptStore(t)

	_, err := store.Load("summarise")
	assert.ErrorContains(t, err, `prompt "summarise"`)

	writePrompt(t, dir, "summarise", "Summarise {{document}}")
	got, err := store.Load("summarise")
	require.NoError(t, err)
	assert.Equal(t, "Summarise {{document}}", got)
}

func TestPromptStore_CacheAndReload(t *testing.T) {
	store, dir := newTestPromptStore(t)
	writePrompt(t, dir, driven.PromptClassify, "v1 {{document}}")

	first, err := store.Load(driven.PromptClassify)
	require.NoError(t, err)

	writePrompt(t, dir, driven.PromptClassify, "v2 {{document}}")
	cached, err := store.Load(driven.PromptClassify)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptClassify)
	require.NoError(t, err)
	assert.Equal(t, "v2 {{document}}", fresh)
}

func TestPromptStore_UnwritableDirUsesDefaults(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	store, err := NewPromptStore(filepath.Join(blocker, "prompts"))
	require.NoError(t, err)

	got, err := store.Load(driven.PromptNegotiation)
	require.NoError(t, err)
	assert.Equal(t, defaultPrompts[driven.PromptNegotiation], got)

	_, err = store.Load("custom")
	assert.ErrorContains(t, err, "create prompt directory")
}

func TestPromptStore_ConcurrentLoad(t *testing.T) {
	store, _ := newTestPromptStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, name := range driven.AllPrompts() {
				got, err := store.Load(name)
				assert.NoError(t, err)
				assert.NotEmpty(t, got)
			}
		}()
	}
	wg.Wait()
}

func TestDefaultPrompts(t *testing.T) {
	require.Len(t, defaultPrompts, len(driven.AllPrompts()))
	for _, name := range driven.AllPrompts() {
		text, ok := defaultPrompts[name]
		require.True(t, ok, name)
		assert.Contains(t, text, documentPlaceholder, name)
		assert.Contains(t, text, "JSON", name)
	}
	for _, name := range []string{driven.PromptRisk, driven.PromptCompliance, driven.PromptNegotiation, driven.PromptAction} {
		assert.Contains(t, defaultPrompts[name], "{{context}}", name)
	}
}
