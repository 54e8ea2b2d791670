// Package merkle computes roots of lean incremental Merkle trees over field elements.
//
// The tree is the one used by Semaphore-style membership groups: leaves are kept in
// insertion order, each parent is the Poseidon hash of its two children, and a node
// without a right sibling is carried up to the next level unchanged. The root of a
// single-leaf tree is the leaf itself.
package merkle

import (
	"math/big"
	"math/bits"

	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/pkg/errors"
)

// MaxDepth is the largest tree depth a proof may claim.
const MaxDepth = 32

// Root computes the tree root over the given leaves. The leaf order is significant:
// permuting leaves changes the root.
func Root(leaves []*big.Int) (*big.Int, error) {
	if len(leaves) == 0 {
		return nil, errors.New("cannot compute root of empty tree")
	}

	level := make([]*big.Int, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		next := make([]*big.Int, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				// odd node, promoted unchanged
				next = append(next, level[i])
				continue
			}
			parent, err := poseidon.Hash([]*big.Int{level[i], level[i+1]})
			if err != nil {
				return nil, errors.Wrap(err, "hashing tree level")
			}
			next = append(next, parent)
		}
		level = next
	}
	return level[0], nil
}

// Depth returns the depth of a tree with n leaves: the number of levels above the
// leaves, ceil(log2(n)).
func Depth(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}
