package sync

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingChangeSetMutualExclusion(t *testing.T) {
	s := NewPendingChangeSet(0)

	require.NoError(t, s.AddUpload("a.liquid"))
	require.NoError(t, s.AddDelete("a.liquid"))
	assert.False(t, s.HasUpload("a.liquid"))
	assert.True(t, s.HasDelete("a.liquid"))

	require.NoError(t, s.AddUpload("a.liquid"))
	assert.True(t, s.HasUpload("a.liquid"))
	assert.False(t, s.HasDelete("a.liquid"))
}

func TestPendingChangeSetRandomOpsKeepSetsDisjoint(t *testing.T) {
	s := NewPendingChangeSet(0)
	rng := rand.New(rand.NewSource(42))
	paths := []string{"a", "b", "c", "d", "e"}

	for range 500 {
		p := paths[rng.Intn(len(paths))]
		if rng.Intn(2) == 0 {
			require.NoError(t, s.AddUpload(p))
		} else {
			require.NoError(t, s.AddDelete(p))
		}
		for _, q := range paths {
			assert.False(t, s.HasUpload(q) && s.HasDelete(q), q)
		}
	}
}

func TestPendingChangeSetDuplicatesCollapse(t *testing.T) {
	s := NewPendingChangeSet(0)
	for range 3 {
		require.NoError(t, s.AddUpload("a.liquid"))
	}
	uploads, deletes := s.Len()
	assert.Equal(t, 1, uploads)
	assert.Equal(t, 0, deletes)
}

func TestPendingChangeSetBound(t *testing.T) {
	s := NewPendingChangeSet(3)
	for i := range 3 {
		require.NoError(t, s.AddUpload(fmt.Sprintf("f%d.liquid", i)))
	}

	assert.ErrorIs(t, s.AddUpload("f3.liquid"), ErrQueueFull)
	// re-queueing a known path is not growth
	assert.NoError(t, s.AddUpload("f0.liquid"))

	uploads, _ := s.Len()
	assert.Equal(t, 3, uploads)

	// the delete set has its own bound
	assert.NoError(t, s.AddDelete("gone.liquid"))
}

func TestPendingChangeSetDrain(t *testing.T) {
	s := NewPendingChangeSet(0)
	require.NoError(t, s.AddUpload("b"))
	require.NoError(t, s.AddUpload("a"))
	require.NoError(t, s.AddDelete("z"))

	uploads, deletes := s.Drain()
	assert.Equal(t, []string{"a", "b"}, uploads)
	assert.Equal(t, []string{"z"}, deletes)
	assert.True(t, s.IsEmpty())

	// accumulates into a fresh set after draining
	require.NoError(t, s.AddUpload("c"))
	uploads, _ = s.Drain()
	assert.Equal(t, []string{"c"}, uploads)
}
