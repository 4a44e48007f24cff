package flat

import (
	"bytes"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-rag/internal/domain"
)

func randomVectors(n, dim int, seed int64) [][]float32 {
	r := rand.New(rand.NewSource(seed))
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, dim)
		for j := range out[i] {
			out[i][j] = r.Float32()*2 - 1
		}
	}
	return out
}

func TestBuild(t *testing.T) {
	idx, err := Build([][]float32{{1, 0}, {0, 1}, {1, 1}})
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, 2, idx.Dimension())
	assert.Equal(t, []float32{0, 1}, idx.Vector(1))
	assert.Nil(t, idx.Vector(3))
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(nil)
	assert.Error(t, err)

	_, err = Build([][]float32{{1, 2}, {3}})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = New(0)
	assert.Error(t, err)
}

func TestSearch_Ordering(t *testing.T) {
	idx, err := Build([][]float32{{3, 0}, {1, 0}, {0, 0}, {2, 0}})
	require.NoError(t, err)

	res, err := idx.Search([]float32{0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, domain.Neighbor{Position: 2, Distance: 0}, res[0])
	assert.Equal(t, domain.Neighbor{Position: 1, Distance: 1}, res[1])
	assert.Equal(t, domain.Neighbor{Position: 3, Distance: 4}, res[2])
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	idx, err := Build([][]float32{{1, 0}, {0, 1}, {-1, 0}, {0, -1}, {0, 0}})
	require.NoError(t, err)

	res, err := idx.Search([]float32{0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, res, 5)
	positions := make([]int, len(res))
	for i, r := range res {
		positions[i] = r.Position
	}
	assert.Equal(t, []int{4, 0, 1, 2, 3}, positions)
}

func TestSearch_KLargerThanIndexReturnsAll(t *testing.T) {
	vecs := randomVectors(17, 8, 1)
	idx, err := Build(vecs)
	require.NoError(t, err)

	res, err := idx.Search(vecs[5], 100)
	require.NoError(t, err)
	require.Len(t, res, 17)
	assert.Equal(t, 5, res[0].Position)
	assert.Zero(t, res[0].Distance)
	for i := 1; i < len(res); i++ {
		assert.LessOrEqual(t, res[i-1].Distance, res[i].Distance)
	}
}

func TestSearch_Empty(t *testing.T) {
	idx, err := New(4)
	require.NoError(t, err)

	res, err := idx.Search([]float32{0, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, res)

	var zero Index
	assert.Equal(t, 0, zero.Len())
	res, err = zero.Search([]float32{1, 2, 3}, 3)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestSearch_DimensionMismatch(t *testing.T) {
	idx, err := Build([][]float32{{1, 2, 3}})
	require.NoError(t, err)
	_, err = idx.Search([]float32{1, 2}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestRoundTrip(t *testing.T) {
	vecs := randomVectors(50, 16, 7)
	idx, err := Build(vecs)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "index.bin")
	require.NoError(t, idx.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, idx.Len(), loaded.Len())
	assert.Equal(t, idx.Dimension(), loaded.Dimension())

	for _, q := range randomVectors(5, 16, 99) {
		want, err := idx.Search(q, 10)
		require.NoError(t, err)
		got, err := loaded.Search(q, 10)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	for i := range vecs {
		assert.Equal(t, vecs[i], loaded.Vector(i))
	}
}

func TestRoundTrip_EmptyIndex(t *testing.T) {
	idx, err := New(3)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := idx.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	var loaded Index
	_, err = loaded.ReadFrom(&buf)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())
	assert.Equal(t, 3, loaded.Dimension())
}

func TestReadFrom_BadInput(t *testing.T) {
	var x Index
	_, err := x.ReadFrom(bytes.NewReader([]byte("not an index at all, definitely")))
	assert.ErrorIs(t, err, ErrBadFormat)

	idx, err := Build([][]float32{{1, 2}, {3, 4}})
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = idx.WriteTo(&buf)
	require.NoError(t, err)

	truncated := buf.Bytes()[:buf.Len()-2]
	_, err = x.ReadFrom(bytes.NewReader(truncated))
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.bin"))
	assert.Error(t, err)
}
