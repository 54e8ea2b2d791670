package merkle

import (
	"math/big"
	"testing"

	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot(t *testing.T) {
	t.Run("empty tree is an error", func(t *testing.T) {
		root, err := Root(nil)
		assert.Error(t, err)
		assert.Nil(t, root)
	})

	t.Run("single leaf root is the leaf", func(t *testing.T) {
		leaf := big.NewInt(123)
		root, err := Root([]*big.Int{leaf})
		require.NoError(t, err)
		assert.Zero(t, root.Cmp(leaf))
	})

	t.Run("two leaves hash to their poseidon parent", func(t *testing.T) {
		left, right := big.NewInt(1), big.NewInt(2)
		expected, err := poseidon.Hash([]*big.Int{left, right})
		require.NoError(t, err)

		root, err := Root([]*big.Int{left, right})
		require.NoError(t, err)
		assert.Zero(t, root.Cmp(expected))
	})

	t.Run("odd leaf is promoted unchanged", func(t *testing.T) {
		l0, l1, l2 := big.NewInt(1), big.NewInt(2), big.NewInt(3)
		parent, err := poseidon.Hash([]*big.Int{l0, l1})
		require.NoError(t, err)
		expected, err := poseidon.Hash([]*big.Int{parent, l2})
		require.NoError(t, err)

		root, err := Root([]*big.Int{l0, l1, l2})
		require.NoError(t, err)
		assert.Zero(t, root.Cmp(expected))
	})

	t.Run("root is deterministic", func(t *testing.T) {
		leaves := []*big.Int{big.NewInt(10), big.NewInt(20), big.NewInt(30), big.NewInt(40)}
		first, err := Root(leaves)
		require.NoError(t, err)
		second, err := Root(leaves)
		require.NoError(t, err)
		assert.Zero(t, first.Cmp(second))
	})

	t.Run("leaf order changes the root", func(t *testing.T) {
		first, err := Root([]*big.Int{big.NewInt(1), big.NewInt(2)})
		require.NoError(t, err)
		second, err := Root([]*big.Int{big.NewInt(2), big.NewInt(1)})
		require.NoError(t, err)
		assert.NotZero(t, first.Cmp(second))
	})
}

func TestDepth(t *testing.T) {
	tests := []struct {
		leaves int
		depth  int
	}{
		{leaves: 0, depth: 0},
		{leaves: 1, depth: 0},
		{leaves: 2, depth: 1},
		{leaves: 3, depth: 2},
		{leaves: 4, depth: 2},
		{leaves: 5, depth: 3},
		{leaves: 8, depth: 3},
		{leaves: 9, depth: 4},
	}
	for _, test := range tests {
		assert.Equal(t, test.depth, Depth(test.leaves))
	}
}
