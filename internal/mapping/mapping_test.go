package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-rag/internal/domain"
)

func sample(n int) Mapping {
	m := make(Mapping, n)
	for i := range m {
		m[i] = Entry{Book: fmt.Sprintf("book%d.pdf", i%3), Chunk: fmt.Sprintf("chunk text %d", i)}
	}
	return m
}

func TestFromChunks(t *testing.T) {
	chunks := []domain.Chunk{
		{Book: "a.pdf", Text: "one", Index: -1},
		{Book: "b.epub", Text: "two", Index: -1},
	}
	m := FromChunks(chunks)
	require.Len(t, m, 2)
	for i, c := range chunks {
		assert.Equal(t, c.Text, m[i].Chunk)
		assert.Equal(t, c.Book, m[i].Book)
	}
}

func TestEncode_Format(t *testing.T) {
	m := Mapping{{Book: "a.pdf", Chunk: "x \"quoted\""}, {Book: "b.epub", Chunk: "y"}}
	var buf bytes.Buffer
	require.NoError(t, m.Encode(&buf))

	assert.Equal(t, `{"0":{"book":"a.pdf","chunk":"x \"quoted\""},"1":{"book":"b.epub","chunk":"y"}}`, buf.String())

	var generic map[string]map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &generic))
	assert.Equal(t, "b.epub", generic["1"]["book"])
}

func TestEncode_NumericKeyOrder(t *testing.T) {
	data, err := sample(12).Bytes()
	require.NoError(t, err)
	s := string(data)
	assert.Less(t, strings.Index(s, `"2":`), strings.Index(s, `"10":`))
}

func TestRoundTrip(t *testing.T) {
	m := sample(25)
	path := filepath.Join(t.TempDir(), "mapping.json")
	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m, loaded)
	for i := range m {
		e, ok := loaded.Lookup(i)
		require.True(t, ok)
		assert.Equal(t, m[i], e)
	}
}

func TestDecode_EmptyObject(t *testing.T) {
	m, err := Decode(strings.NewReader(`{}`))
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestDecode_UnorderedKeys(t *testing.T) {
	m, err := Decode(strings.NewReader(`{"1":{"book":"b","chunk":"second"},"0":{"book":"a","chunk":"first"}}`))
	require.NoError(t, err)
	assert.Equal(t, Mapping{{Book: "a", Chunk: "first"}, {Book: "b", Chunk: "second"}}, m)
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not json", input: `not json`},
		{name: "non integer key", input: `{"zero":{"book":"a","chunk":"x"}}`},
		{name: "negative key", input: `{"-1":{"book":"a","chunk":"x"}}`},
		{name: "gap", input: `{"0":{"book":"a","chunk":"x"},"2":{"book":"a","chunk":"y"}}`},
		{name: "duplicate after normalization", input: `{"0":{"book":"a","chunk":"x"},"00":{"book":"a","chunk":"y"}}`},
		{name: "plus sign", input: `{"0":{"book":"a","chunk":"x"},"+1":{"book":"a","chunk":"y"}}`},
		{name: "leading zero", input: `{"0":{"book":"a","chunk":"x"},"01":{"book":"a","chunk":"y"}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.input))
			assert.ErrorIs(t, err, domain.ErrInconsistentIndex)
		})
	}
}

func TestLookup_OutOfRange(t *testing.T) {
	m := sample(2)
	_, ok := m.Lookup(-1)
	assert.False(t, ok)
	_, ok = m.Lookup(2)
	assert.False(t, ok)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestEncode_RejectsInvalidUTF8(t *testing.T) {
	var buf bytes.Buffer
	err := Mapping{{Book: "a.pdf", Chunk: "caf\xe9 au lait"}}.Encode(&buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry 0")
}
