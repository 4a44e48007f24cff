package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-rag/internal/domain"
)

func words(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("w%d", i+1)
	}
	return out
}

func TestNewWordChunker_Validation(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		overlap   int
		wantErr   bool
	}{
		{name: "defaults", chunkSize: DefaultChunkSize, overlap: DefaultOverlap},
		{name: "no overlap", chunkSize: 10, overlap: 0},
		{name: "maximum overlap", chunkSize: 10, overlap: 9},
		{name: "zero size", chunkSize: 0, overlap: 0, wantErr: true},
		{name: "negative size", chunkSize: -5, overlap: 0, wantErr: true},
		{name: "negative overlap", chunkSize: 10, overlap: -1, wantErr: true},
		{name: "overlap equals size", chunkSize: 10, overlap: 10, wantErr: true},
		{name: "overlap exceeds size", chunkSize: 10, overlap: 20, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := NewWordChunker(tc.chunkSize, tc.overlap)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidConfig)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.chunkSize, c.ChunkSize())
			assert.Equal(t, tc.overlap, c.Overlap())
		})
	}
}

func TestSplit_Empty(t *testing.T) {
	c, err := NewWordChunker(5, 1)
	require.NoError(t, err)
	assert.Empty(t, c.Split(""))
	assert.Empty(t, c.Split(" \n\t "))
}

func TestSplit_SixHundredWords(t *testing.T) {
	c, err := NewWordChunker(500, 50)
	require.NoError(t, err)

	w := words(600)
	chunks := c.Split(strings.Join(w, " "))

	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Join(w[0:500], " "), chunks[0])
	assert.Equal(t, strings.Join(w[450:600], " "), chunks[1])
}

func TestSplit_ShortText(t *testing.T) {
	c, err := NewWordChunker(500, 50)
	require.NoError(t, err)
	chunks := c.Split("just a few words")
	assert.Equal(t, []string{"just a few words"}, chunks)
}

func TestSplit_StrideReconstructsText(t *testing.T) {
	configs := []struct{ size, overlap, n int }{
		{5, 0, 23}, {5, 2, 23}, {5, 4, 7}, {3, 1, 3}, {10, 3, 100}, {7, 6, 20}, {1, 0, 4},
	}

	for _, cfg := range configs {
		t.Run(fmt.Sprintf("c%d_o%d_n%d", cfg.size, cfg.overlap, cfg.n), func(t *testing.T) {
			c, err := NewWordChunker(cfg.size, cfg.overlap)
			require.NoError(t, err)

			w := words(cfg.n)
			chunks := c.Split(strings.Join(w, " "))
			require.NotEmpty(t, chunks)

			stride := cfg.size - cfg.overlap
			var rebuilt []string
			for i, ch := range chunks {
				cw := strings.Fields(ch)
				assert.LessOrEqual(t, len(cw), cfg.size)
				if i == len(chunks)-1 {
					rebuilt = append(rebuilt, cw...)
				} else {
					rebuilt = append(rebuilt, cw[:stride]...)
				}
			}
			assert.Equal(t, w, rebuilt)

			// Only windows that reach the end of the text may be short.
			for i := 0; i+1 < len(chunks); i++ {
				left := strings.Fields(chunks[i])
				right := strings.Fields(chunks[i+1])
				if len(right) < cfg.size {
					break
				}
				assert.Equal(t, left[len(left)-cfg.overlap:], right[:cfg.overlap])
			}
		})
	}
}

func TestChunk_AttributesBook(t *testing.T) {
	c, err := NewWordChunker(3, 1)
	require.NoError(t, err)

	chunks := c.Chunk("book.pdf", "a b c d e")
	require.Len(t, chunks, 2)
	for _, ch := range chunks {
		assert.Equal(t, "book.pdf", ch.Book)
		assert.Equal(t, -1, ch.Index)
	}
	assert.Equal(t, "a b c", chunks[0].Text)
	assert.Equal(t, "c d e", chunks[1].Text)
	assert.Nil(t, c.Chunk("empty.pdf", ""))
}
