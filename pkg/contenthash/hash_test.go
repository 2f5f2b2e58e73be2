package contenthash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOf(t *testing.T) {
	t.Run("stable for identical text", func(t *testing.T) {
		assert.Equal(t, Of("归因模型详解"), Of("归因模型详解"))
	})

	t.Run("whitespace is canonicalized", func(t *testing.T) {
		assert.Equal(t, Of("hello world"), Of("  hello \t world \n"))
	})

	t.Run("different text yields different hashes", func(t *testing.T) {
		assert.NotEqual(t, Of("a"), Of("b"))
	})

	t.Run("hex encoded sha256 length", func(t *testing.T) {
		assert.Len(t, Of("anything"), 64)
	})
}
