package flat

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/fsutil"
	"knowledge-rag/internal/vectorstore"
)

var _ vectorstore.Index = (*Index)(nil)

const (
	magic   = "KRFLATL2"
	version = uint32(1)
)

// ErrBadFormat indicates a file that is not a flat index or is truncated.
var ErrBadFormat = errors.New("flat index: bad format")

// Index is an exact nearest-neighbor index using brute-force squared
// Euclidean distance. Vectors are stored contiguously in insertion order.
type Index struct {
	dimension int
	data      []float32
}

// New creates an empty index for vectors of the given dimension.
func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, errors.New("invalid dimension")
	}
	return &Index{dimension: dimension}, nil
}

// Build creates an index whose position i holds vectors[i].
func Build(vectors [][]float32) (*Index, error) {
	if len(vectors) == 0 {
		return nil, errors.New("no vectors to index")
	}
	idx, err := New(len(vectors[0]))
	if err != nil {
		return nil, err
	}
	idx.data = make([]float32, 0, len(vectors)*idx.dimension)
	if err := idx.Add(vectors...); err != nil {
		return nil, err
	}
	return idx, nil
}

// Add appends vectors; all must match the index dimension.
func (x *Index) Add(vectors ...[]float32) error {
	for i, v := range vectors {
		if len(v) != x.dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, index has %d", domain.ErrDimensionMismatch, i, len(v), x.dimension)
		}
	}
	for _, v := range vectors {
		x.data = append(x.data, v...)
	}
	return nil
}

// Len returns the number of stored vectors.
func (x *Index) Len() int {
	if x.dimension == 0 {
		return 0
	}
	return len(x.data) / x.dimension
}

// Dimension returns the vector dimension.
func (x *Index) Dimension() int { return x.dimension }

// Vector returns a copy of the vector at position i.
func (x *Index) Vector(i int) []float32 {
	if i < 0 || i >= x.Len() {
		return nil
	}
	v := make([]float32, x.dimension)
	copy(v, x.data[i*x.dimension:(i+1)*x.dimension])
	return v
}

// Search returns the k nearest vectors by ascending squared L2 distance.
// Equal distances keep the lower position first. k larger than the index
// returns every entry.
func (x *Index) Search(query []float32, k int) ([]domain.Neighbor, error) {
	n := x.Len()
	if n == 0 {
		return []domain.Neighbor{}, nil
	}
	if len(query) != x.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", domain.ErrDimensionMismatch, len(query), x.dimension)
	}
	if k <= 0 {
		return []domain.Neighbor{}, nil
	}
	all := make([]domain.Neighbor, n)
	for i := 0; i < n; i++ {
		all[i] = domain.Neighbor{Position: i, Distance: squaredL2(x.data[i*x.dimension:(i+1)*x.dimension], query)}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Distance != all[j].Distance {
			return all[i].Distance < all[j].Distance
		}
		return all[i].Position < all[j].Position
	})
	if k > n {
		k = n
	}
	return all[:k], nil
}

func squaredL2(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// WriteTo encodes the index: magic, version, dimension, count, then the
// float32 payload, all little-endian.
func (x *Index) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	cw := &countingWriter{w: bw}
	header := struct {
		Magic     [8]byte
		Version   uint32
		Dimension uint32
		Count     uint64
	}{Version: version, Dimension: uint32(x.dimension), Count: uint64(x.Len())}
	copy(header.Magic[:], magic)
	if err := binary.Write(cw, binary.LittleEndian, header); err != nil {
		return cw.n, err
	}
	buf := make([]byte, 4)
	for _, f := range x.data {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
		if _, err := cw.Write(buf); err != nil {
			return cw.n, err
		}
	}
	return cw.n, bw.Flush()
}

// ReadFrom replaces the index contents with an encoding produced by WriteTo.
func (x *Index) ReadFrom(r io.Reader) (int64, error) {
	cr := &countingReader{r: bufio.NewReader(r)}
	var header struct {
		Magic     [8]byte
		Version   uint32
		Dimension uint32
		Count     uint64
	}
	if err := binary.Read(cr, binary.LittleEndian, &header); err != nil {
		return cr.n, fmt.Errorf("%w: header: %v", ErrBadFormat, err)
	}
	if string(header.Magic[:]) != magic {
		return cr.n, fmt.Errorf("%w: unexpected magic %q", ErrBadFormat, header.Magic[:])
	}
	if header.Version != version {
		return cr.n, fmt.Errorf("%w: unsupported version %d", ErrBadFormat, header.Version)
	}
	if header.Dimension == 0 {
		return cr.n, fmt.Errorf("%w: zero dimension", ErrBadFormat)
	}
	total := header.Count * uint64(header.Dimension)
	data := make([]float32, 0, min(total, 1<<20))
	buf := make([]byte, 4)
	for i := uint64(0); i < total; i++ {
		if _, err := io.ReadFull(cr, buf); err != nil {
			return cr.n, fmt.Errorf("%w: payload: %v", ErrBadFormat, err)
		}
		data = append(data, math.Float32frombits(binary.LittleEndian.Uint32(buf)))
	}
	x.dimension = int(header.Dimension)
	x.data = data
	return cr.n, nil
}

// Save writes the index to path atomically.
func (x *Index) Save(path string) error {
	return fsutil.WriteFile(path, func(w io.Writer) error {
		_, err := x.WriteTo(w)
		return err
	})
}

// Load reads an index previously written by Save.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	x := &Index{}
	if _, err := x.ReadFrom(f); err != nil {
		return nil, err
	}
	return x, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
