package vectormath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine(t *testing.T) {
	v := []float32{0.3, -1.2, 4.5, 0.01}

	t.Run("self similarity is one", func(t *testing.T) {
		assert.InDelta(t, 1.0, Cosine(v, v), 1e-5)
	})

	t.Run("orthogonal vectors score zero", func(t *testing.T) {
		a := []float32{1, 0, 0, 0}
		b := []float32{0, 1, 0, 0}
		assert.InDelta(t, 0.0, Cosine(a, b), 1e-5)
	})

	t.Run("negated vector scores minus one", func(t *testing.T) {
		neg := make([]float32, len(v))
		for i := range v {
			neg[i] = -v[i]
		}
		assert.InDelta(t, -1.0, Cosine(v, neg), 1e-5)
	})

	t.Run("zero vector guard", func(t *testing.T) {
		zero := []float32{0, 0, 0, 0}
		assert.Equal(t, 0.0, Cosine(v, zero))
		assert.Equal(t, 0.0, Cosine(zero, zero))
	})

	t.Run("mismatched lengths score zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Cosine(v, []float32{1, 2}))
		assert.Equal(t, 0.0, Cosine(nil, nil))
	})
}
