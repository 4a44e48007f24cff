// Package index builds, persists and loads the vector index together with its
// mapping. The two are only ever produced as one Bundle so that position i in
// the index always resolves to the chunk that produced vector i.
package index

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/google/uuid"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/fsutil"
	"knowledge-rag/internal/mapping"
	"knowledge-rag/internal/vectorstore/flat"
)

const bundleMagic = "KRBUNDLE"

// Paths locates a persisted bundle.
type Paths struct {
	Index   string
	Mapping string
}

// Previous locates the pair kept by Save from before the last build.
func (p Paths) Previous() Paths {
	return Paths{Index: p.Index + ".prev", Mapping: p.Mapping + ".prev"}
}

// Bundle is an index and the mapping built in the same run.
type Bundle struct {
	ID      uuid.UUID
	Index   *flat.Index
	Mapping mapping.Mapping
}

// Len returns the number of indexed chunks.
func (b *Bundle) Len() int { return b.Index.Len() }

// Search returns the k nearest chunks to query, resolved through the mapping.
func (b *Bundle) Search(query []float32, k int) ([]domain.Candidate, error) {
	neighbors, err := b.Index.Search(query, k)
	if err != nil {
		return nil, err
	}
	return b.Resolve(neighbors)
}

// Resolve turns index hits into candidates. A position with no mapping entry
// means the index and mapping come from different builds.
func (b *Bundle) Resolve(neighbors []domain.Neighbor) ([]domain.Candidate, error) {
	out := make([]domain.Candidate, 0, len(neighbors))
	for _, n := range neighbors {
		e, ok := b.Mapping.Lookup(n.Position)
		if !ok {
			return nil, fmt.Errorf("%w: position %d has no mapping entry (mapping size %d)", domain.ErrInconsistentIndex, n.Position, len(b.Mapping))
		}
		out = append(out, domain.Candidate{Book: e.Book, Text: e.Chunk, Position: n.Position, Distance: n.Distance})
	}
	return out, nil
}

// header precedes the flat index payload in the index file. It ties the
// index to the exact mapping bytes written alongside it.
type header struct {
	Magic         [8]byte
	ID            [16]byte
	MappingDigest [32]byte
}

// Save persists the bundle. Both files are fully written to temporary
// siblings before either target is replaced. If the current pair on disk is
// intact it is first kept as the Previous pair, then the mapping and the
// index are renamed into place. An interrupted save leaves either the
// current pair or a pair whose digest check fails, in which case Load
// returns the previous one.
func Save(b *Bundle, paths Paths) error {
	if len(b.Mapping) != b.Index.Len() {
		return fmt.Errorf("%w: mapping has %d entries, index has %d", domain.ErrInconsistentIndex, len(b.Mapping), b.Index.Len())
	}
	mappingBytes, err := b.Mapping.Bytes()
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}
	h := header{ID: b.ID, MappingDigest: sha256.Sum256(mappingBytes)}
	copy(h.Magic[:], bundleMagic)

	stagedMapping, err := fsutil.Stage(paths.Mapping, func(w io.Writer) error {
		_, err := w.Write(mappingBytes)
		return err
	})
	if err != nil {
		return fmt.Errorf("write mapping: %w", err)
	}
	stagedIndex, err := fsutil.Stage(paths.Index, func(w io.Writer) error {
		if _, err := w.Write(h.Magic[:]); err != nil {
			return err
		}
		if _, err := w.Write(h.ID[:]); err != nil {
			return err
		}
		if _, err := w.Write(h.MappingDigest[:]); err != nil {
			return err
		}
		_, err := b.Index.WriteTo(w)
		return err
	})
	if err != nil {
		stagedMapping.Discard()
		return fmt.Errorf("write index: %w", err)
	}
	if intact(paths) {
		if err := keepPrevious(paths); err != nil {
			stagedMapping.Discard()
			stagedIndex.Discard()
			return fmt.Errorf("keep previous index: %w", err)
		}
	}
	if err := stagedMapping.Commit(); err != nil {
		stagedIndex.Discard()
		return err
	}
	return stagedIndex.Commit()
}

func keepPrevious(paths Paths) error {
	prev := paths.Previous()
	if err := fsutil.Snapshot(paths.Mapping, prev.Mapping); err != nil {
		return err
	}
	return fsutil.Snapshot(paths.Index, prev.Index)
}

// intact reports whether the index at paths was written with the mapping
// next to it.
func intact(paths Paths) bool {
	mappingBytes, err := os.ReadFile(paths.Mapping)
	if err != nil {
		return false
	}
	f, err := os.Open(paths.Index)
	if err != nil {
		return false
	}
	defer f.Close()
	h, err := readHeader(bufio.NewReader(f), paths.Index)
	if err != nil {
		return false
	}
	return h.MappingDigest == sha256.Sum256(mappingBytes)
}

// Load restores a bundle written by Save. A missing file yields
// ErrIndexNotBuilt; files from different builds yield ErrInconsistentIndex
// unless an intact Previous pair is available, which is returned instead.
func Load(paths Paths) (*Bundle, error) {
	b, err := load(paths)
	if err == nil || !errors.Is(err, domain.ErrInconsistentIndex) {
		return b, err
	}
	if prev, perr := load(paths.Previous()); perr == nil {
		return prev, nil
	}
	return nil, err
}

func load(paths Paths) (*Bundle, error) {
	mappingBytes, err := os.ReadFile(paths.Mapping)
	if err != nil {
		return nil, notBuilt(err, paths.Mapping)
	}
	f, err := os.Open(paths.Index)
	if err != nil {
		return nil, notBuilt(err, paths.Index)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	h, err := readHeader(r, paths.Index)
	if err != nil {
		return nil, err
	}
	if h.MappingDigest != sha256.Sum256(mappingBytes) {
		return nil, fmt.Errorf("%w: %s was not written with %s; rebuild the index", domain.ErrInconsistentIndex, paths.Mapping, paths.Index)
	}

	idx := &flat.Index{}
	if _, err := idx.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInconsistentIndex, err)
	}
	m, err := mapping.Decode(bytes.NewReader(mappingBytes))
	if err != nil {
		return nil, err
	}
	if len(m) != idx.Len() {
		return nil, fmt.Errorf("%w: mapping has %d entries, index has %d", domain.ErrInconsistentIndex, len(m), idx.Len())
	}
	return &Bundle{ID: uuid.UUID(h.ID), Index: idx, Mapping: m}, nil
}

func readHeader(r io.Reader, path string) (header, error) {
	var h header
	if _, err := io.ReadFull(r, h.Magic[:]); err != nil || string(h.Magic[:]) != bundleMagic {
		return h, fmt.Errorf("%w: %s is not an index bundle", domain.ErrInconsistentIndex, path)
	}
	if _, err := io.ReadFull(r, h.ID[:]); err != nil {
		return h, fmt.Errorf("%w: truncated header in %s", domain.ErrInconsistentIndex, path)
	}
	if _, err := io.ReadFull(r, h.MappingDigest[:]); err != nil {
		return h, fmt.Errorf("%w: truncated header in %s", domain.ErrInconsistentIndex, path)
	}
	return h, nil
}

// Exists reports whether both bundle files are present.
func Exists(paths Paths) bool {
	for _, p := range []string{paths.Index, paths.Mapping} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

func notBuilt(err error, path string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s does not exist", domain.ErrIndexNotBuilt, path)
	}
	return fmt.Errorf("read %s: %w", path, err)
}
