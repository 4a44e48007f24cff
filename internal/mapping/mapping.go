// Package mapping persists the association between index positions and the
// chunks that produced them.
package mapping

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"unicode/utf8"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/fsutil"
)

// Entry is the source metadata of one indexed chunk.
type Entry struct {
	Book  string `json:"book"`
	Chunk string `json:"chunk"`
}

// Mapping is ordered by index position: Mapping[i] describes vector i.
// Keys only become strings on disk.
type Mapping []Entry

// FromChunks builds a mapping in chunk order.
func FromChunks(chunks []domain.Chunk) Mapping {
	m := make(Mapping, len(chunks))
	for i, c := range chunks {
		m[i] = Entry{Book: c.Book, Chunk: c.Text}
	}
	return m
}

// Lookup returns the entry at position i.
func (m Mapping) Lookup(i int) (Entry, bool) {
	if i < 0 || i >= len(m) {
		return Entry{}, false
	}
	return m[i], true
}

// Encode writes the mapping as a JSON object keyed "0", "1", ... in
// ascending numeric order. Entries must be valid UTF-8, otherwise JSON
// would not read them back byte for byte.
func (m Mapping) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := bw.WriteByte('{'); err != nil {
		return err
	}
	for i, e := range m {
		if !utf8.ValidString(e.Book) || !utf8.ValidString(e.Chunk) {
			return fmt.Errorf("encode entry %d: text is not valid UTF-8", i)
		}
		if i > 0 {
			bw.WriteByte(',')
		}
		val, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode entry %d: %w", i, err)
		}
		bw.WriteByte('"')
		bw.WriteString(strconv.Itoa(i))
		bw.WriteString(`":`)
		bw.Write(val)
	}
	bw.WriteByte('}')
	return bw.Flush()
}

// Bytes returns the encoded form of the mapping.
func (m Mapping) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := m.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a mapping written by Encode. Keys are converted to integer
// positions here; they must be exactly "0".."n-1" with no sign or leading zeros.
func Decode(r io.Reader) (Mapping, error) {
	var raw map[string]Entry
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode mapping: %v", domain.ErrInconsistentIndex, err)
	}
	m := make(Mapping, len(raw))
	seen := make([]bool, len(raw))
	for key, e := range raw {
		pos, err := strconv.Atoi(key)
		if err != nil || strconv.Itoa(pos) != key {
			return nil, fmt.Errorf("%w: mapping key %q is not a canonical integer", domain.ErrInconsistentIndex, key)
		}
		if pos < 0 || pos >= len(raw) {
			return nil, fmt.Errorf("%w: mapping key %d out of range 0..%d", domain.ErrInconsistentIndex, pos, len(raw)-1)
		}
		if seen[pos] {
			return nil, fmt.Errorf("%w: duplicate mapping key %d", domain.ErrInconsistentIndex, pos)
		}
		seen[pos] = true
		m[pos] = e
	}
	return m, nil
}

// Save writes the mapping to path atomically.
func (m Mapping) Save(path string) error {
	return fsutil.WriteFile(path, m.Encode)
}

// Load reads a mapping from path.
func Load(path string) (Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
