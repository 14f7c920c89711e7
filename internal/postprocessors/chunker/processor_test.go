package chunker

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		assert.Equal(t, DefaultChunkSize, p.chunkSize)
		assert.Equal(t, DefaultChunkOverlap, p.overlap)
	})

	t.Run("custom values", func(t *testing.T) {
		p := New(WithChunkSize(500), WithOverlap(100))
		assert.Equal(t, 500, p.chunkSize)
		assert.Equal(t, 100, p.overlap)
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1))
		assert.Equal(t, DefaultChunkSize, p.chunkSize)
		assert.Equal(t, DefaultChunkOverlap, p.overlap)
	})

	t.Run("tiny chunk size raised to minimum", func(t *testing.T) {
		p := New(WithChunkSize(2))
		assert.Equal(t, MinChunkSize, p.chunkSize)
		assert.Less(t, p.overlap, p.chunkSize)
	})

	t.Run("overlap capped below chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		assert.Equal(t, 25, p.overlap)
	})
}

func TestProcessor_Name(t *testing.T) {
	assert.Equal(t, "chunker", New().Name())
}

func TestProcess_EmptyContent(t *testing.T) {
	for _, content := range []string{"", "   \n\n\t "} {
		chunks, err := New().Process(context.Background(), &domain.Document{ID: "d", Content: content}, nil)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestProcess_ShortInputYieldsOneChunk(t *testing.T) {
	doc := &domain.Document{ID: "doc-1", Content: "Short. Two sentences."}

	chunks, err := New().Process(context.Background(), doc, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, "Short. Two sentences.", chunks[0].Content)
	assert.Equal(t, "doc-1", chunks[0].DocumentID)
	assert.Equal(t, 0, chunks[0].Position)
	assert.NotEmpty(t, chunks[0].ID)
	assert.Equal(t, 0, chunks[0].Metadata["offset"])
}

func sentencesText(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "Sentence number %03d describes a clause in the agreement. ", i)
	}
	return sb.String()
}

func TestProcess_DensePositionsAndNoEmptyChunks(t *testing.T) {
	doc := &domain.Document{ID: "doc", Content: sentencesText(80)}

	chunks, err := New(WithChunkSize(300), WithOverlap(60)).Process(context.Background(), doc, nil)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	ids := make(map[string]bool)
	for i, c := range chunks {
		assert.Equal(t, i, c.Position)
		assert.NotEmpty(t, strings.TrimSpace(c.Content))
		assert.LessOrEqual(t, len(c.Content), 300+60+1)
		assert.False(t, ids[c.ID], "chunk IDs are unique")
		ids[c.ID] = true
	}
}

func TestProcess_EverySentenceIsCovered(t *testing.T) {
	text := sentencesText(40)
	chunks, err := New(WithChunkSize(250), WithOverlap(50)).Process(context.Background(),
		&domain.Document{ID: "doc", Content: text}, nil)
	require.NoError(t, err)

	var joined strings.Builder
	for _, c := range chunks {
		joined.WriteString(c.Content)
		joined.WriteString(" ")
	}
	for i := 0; i < 40; i++ {
		assert.Contains(t, joined.String(), fmt.Sprintf("Sentence number %03d", i))
	}
}

func TestProcess_ChunksAreSeededWithOverlap(t *testing.T) {
	p := New(WithChunkSize(200), WithOverlap(40))
	pieces := p.Split(sentencesText(10))
	require.Greater(t, len(pieces), 1)

	for i := 1; i < len(pieces); i++ {
		seed := tail(pieces[i-1].Text, 40)
		require.NotEmpty(t, seed)
		assert.True(t, strings.HasPrefix(pieces[i].Text, seed),
			"chunk %d should start with the tail of chunk %d", i, i-1)
	}
}

func TestProcess_BreaksOnSentenceBoundaries(t *testing.T) {
	p := New(WithChunkSize(120), WithOverlap(0))
	pieces := p.Split(sentencesText(6))
	require.Greater(t, len(pieces), 1)

	for _, piece := range pieces {
		assert.True(t, strings.HasSuffix(piece.Text, "."), "chunk %q should end a sentence", piece.Text)
		assert.True(t, strings.HasPrefix(piece.Text, "Sentence"))
	}
}

func TestProcess_OverlongSentenceIsHardSplit(t *testing.T) {
	long := strings.Repeat("word ", 100) // 500 bytes, no sentence terminator
	pieces := New(WithChunkSize(100), WithOverlap(0)).Split(long)

	require.GreaterOrEqual(t, len(pieces), 5)
	for _, piece := range pieces {
		assert.LessOrEqual(t, len(piece.Text), 100)
		assert.NotEmpty(t, piece.Text)
	}
}

func TestProcess_BlankLinesSeparateSentences(t *testing.T) {
	p := New(WithChunkSize(20), WithOverlap(0))
	pieces := p.Split("Heading without stop\n\nBody text follows")
	require.Len(t, pieces, 2)
	assert.Equal(t, "Heading without stop", pieces[0].Text)
	assert.Equal(t, "Body text follows", pieces[1].Text)
	assert.Equal(t, strings.Index("Heading without stop\n\nBody text follows", "Body"), pieces[1].Offset)
}

func TestProcess_MultibyteSafe(t *testing.T) {
	text := strings.Repeat("ऋण समझौता ", 60)
	pieces := New(WithChunkSize(64), WithOverlap(16)).Split(text)
	require.NotEmpty(t, pieces)
	for _, piece := range pieces {
		assert.True(t, strings.ToValidUTF8(piece.Text, "") == piece.Text, "chunk must be valid UTF-8")
	}
}

func TestSplit_TinySizeMultibyteTerminates(t *testing.T) {
	text := "日本語テキスト"

	for _, p := range []*Processor{New(WithChunkSize(2), WithOverlap(0)), {chunkSize: 2}} {
		done := make(chan []Piece, 1)
		go func() { done <- p.Split(text) }()

		select {
		case pieces := <-done:
			require.NotEmpty(t, pieces)
			var joined strings.Builder
			for _, piece := range pieces {
				assert.True(t, utf8.ValidString(piece.Text))
				joined.WriteString(piece.Text)
			}
			assert.Equal(t, text, joined.String())
		case <-time.After(2 * time.Second):
			t.Fatalf("Split with chunk size %d did not return", p.chunkSize)
		}
	}
}

func TestTail(t *testing.T) {
	assert.Equal(t, "", tail("abc", 0))
	assert.Equal(t, "abc", tail("abc", 10))
	assert.Equal(t, "world", tail("hello big world", 8))
}
