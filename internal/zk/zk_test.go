package zk

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrustedRootChecker(t *testing.T) {
	checker := NewTrustedRootChecker()
	assert.Equal(t, ModeTrustedRoot, checker.Mode())
	assert.NoError(t, checker.Check(context.Background(), Proof{}))
}

func TestGroth16Checker(t *testing.T) {
	t.Run("missing key file", func(t *testing.T) {
		checker, err := NewGroth16Checker("does-not-exist.json")
		assert.Error(t, err)
		assert.Nil(t, checker)
	})

	t.Run("wrong point count is rejected", func(t *testing.T) {
		checker := &Groth16Checker{verificationKey: []byte("{}")}
		err := checker.Check(context.Background(), Proof{
			MerkleTreeRoot: big.NewInt(1),
			Nullifier:      big.NewInt(2),
			Message:        big.NewInt(3),
			Scope:          big.NewInt(4),
			Points:         []*big.Int{big.NewInt(1)},
		})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "proof points")
	})
}

func TestHashSignal(t *testing.T) {
	// deterministic, field-sized, and sensitive to the input
	first := hashSignal(big.NewInt(1))
	second := hashSignal(big.NewInt(1))
	other := hashSignal(big.NewInt(2))

	require.NotNil(t, first)
	assert.Zero(t, first.Cmp(second))
	assert.NotZero(t, first.Cmp(other))
	// right shift by 8 keeps the value under 2^248
	max := new(big.Int).Lsh(big.NewInt(1), 248)
	assert.Negative(t, first.Cmp(max))
}
