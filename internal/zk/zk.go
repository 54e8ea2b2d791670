// Package zk wraps the zero-knowledge proof verification primitive the service
// consumes. The cryptography itself is not implemented here; proofs are checked by
// an injected ProofChecker strategy resolved once at startup.
package zk

import (
	"context"
	"math/big"
)

type Mode string

const (
	// ModeGroth16 verifies the packed Groth16 proof against a verification key.
	ModeGroth16 Mode = "groth16"
	// ModeTrustedRoot skips the cryptographic check. Development only; config
	// validation refuses it outside dev and test environments.
	ModeTrustedRoot Mode = "trusted-root"
)

// PointCount is the number of curve point coordinates in a packed Groth16 proof.
const PointCount = 8

// Proof is the structurally validated input to a checker. All values are elements
// of the proving system's scalar field, parsed from their decimal string forms.
type Proof struct {
	MerkleTreeDepth int
	MerkleTreeRoot  *big.Int
	Nullifier       *big.Int
	Message         *big.Int
	Scope           *big.Int
	Points          []*big.Int
}

// ProofChecker is the verification primitive capability. Check returns nil only if
// the proof is cryptographically valid for its claimed root, nullifier, message,
// and scope.
type ProofChecker interface {
	Check(ctx context.Context, proof Proof) error
	Mode() Mode
}
