package verification

import (
	"fmt"
	"math/big"

	"github.com/pkg/errors"

	"github.com/praxy-health/zkid-service/internal/merkle"
	"github.com/praxy-health/zkid-service/internal/zk"
)

// Proof is the wire form of a zero-knowledge membership proof: opaque,
// structurally validated input produced by a client holding identity secrets.
// All numeric fields are decimal strings.
type Proof struct {
	MerkleTreeDepth int      `json:"merkleTreeDepth"`
	MerkleTreeRoot  string   `json:"merkleTreeRoot"`
	Nullifier       string   `json:"nullifier"`
	Message         string   `json:"message"`
	Scope           string   `json:"scope"`
	Points          []string `json:"points"`
}

// Verified is returned on a successful verification.
type Verified struct {
	Nullifier  string `json:"nullifier"`
	Scope      string `json:"scope"`
	GroupRoot  string `json:"groupRoot"`
	VerifiedAt string `json:"verifiedAt"`
}

var (
	// ErrMalformedProof rejects structurally invalid proofs before any state is
	// consulted.
	ErrMalformedProof = errors.New("malformed proof")
	// ErrNullifierReused rejects a proof whose (nullifier, scope) pair was
	// already consumed.
	ErrNullifierReused = errors.New("nullifier already used for this scope")
	// ErrInvalidProof is the cryptographic rejection.
	ErrInvalidProof = errors.New("proof failed cryptographic verification")
	// ErrVerificationTimeout is a failed verification, not a retryable success.
	ErrVerificationTimeout = errors.New("proof verification timed out")
)

// GroupMismatchError rejects a proof whose root does not match the current
// group. It carries both roots so the caller can resync.
type GroupMismatchError struct {
	ProvidedRoot string
	ExpectedRoot string
}

func (e *GroupMismatchError) Error() string {
	return fmt.Sprintf("proof root<%s> does not match the current group root<%s>", e.ProvidedRoot, e.ExpectedRoot)
}

// ScopeMismatchError rejects a proof bound to a different scope than the caller
// expected.
type ScopeMismatchError struct {
	ProofScope    string
	ExpectedScope string
}

func (e *ScopeMismatchError) Error() string {
	return fmt.Sprintf("proof scope<%s> does not match the expected scope<%s>", e.ProofScope, e.ExpectedScope)
}

// parse validates the proof's structure and converts it to the checker's form.
// Every failure wraps ErrMalformedProof.
func (p Proof) parse() (*zk.Proof, error) {
	if p.MerkleTreeDepth < 1 || p.MerkleTreeDepth > merkle.MaxDepth {
		return nil, errors.Wrapf(ErrMalformedProof, "merkle tree depth must be in [1,%d], got %d", merkle.MaxDepth, p.MerkleTreeDepth)
	}
	if len(p.Points) == 0 {
		return nil, errors.Wrap(ErrMalformedProof, "proof points are required")
	}

	parsed := zk.Proof{MerkleTreeDepth: p.MerkleTreeDepth}
	fields := []struct {
		name  string
		value string
		out   **big.Int
	}{
		{"merkleTreeRoot", p.MerkleTreeRoot, &parsed.MerkleTreeRoot},
		{"nullifier", p.Nullifier, &parsed.Nullifier},
		{"message", p.Message, &parsed.Message},
		{"scope", p.Scope, &parsed.Scope},
	}
	for _, field := range fields {
		if field.value == "" {
			return nil, errors.Wrapf(ErrMalformedProof, "%s is required", field.name)
		}
		value, ok := new(big.Int).SetString(field.value, 10)
		if !ok {
			return nil, errors.Wrapf(ErrMalformedProof, "%s is not a decimal integer", field.name)
		}
		*field.out = value
	}

	parsed.Points = make([]*big.Int, 0, len(p.Points))
	for i, point := range p.Points {
		value, ok := new(big.Int).SetString(point, 10)
		if !ok {
			return nil, errors.Wrapf(ErrMalformedProof, "point %d is not a decimal integer", i)
		}
		parsed.Points = append(parsed.Points, value)
	}
	return &parsed, nil
}
