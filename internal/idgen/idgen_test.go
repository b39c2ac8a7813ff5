package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferencesAreUniqueAndDecodable(t *testing.T) {
	gen, err := NewGenerator(3, "test-salt")
	require.NoError(t, err)

	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		ref, err := gen.Reference()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(ref), referenceMinLength)
		_, dup := seen[ref]
		require.False(t, dup, "duplicate reference %s", ref)
		seen[ref] = struct{}{}

		id, err := gen.Decode(ref)
		require.NoError(t, err)
		assert.Equal(t, int64(3), id.Node())
	}
}

func TestRejectsBadNode(t *testing.T) {
	_, err := NewGenerator(5000, "salt")
	assert.Error(t, err)
}
