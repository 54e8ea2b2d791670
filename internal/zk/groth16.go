package zk

import (
	"context"
	"math/big"
	"os"

	"github.com/iden3/go-rapidsnark/types"
	"github.com/iden3/go-rapidsnark/verifier"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// Groth16Checker verifies Semaphore-packed Groth16 proofs with a snarkjs-format
// verification key.
type Groth16Checker struct {
	verificationKey []byte
}

func NewGroth16Checker(verificationKeyPath string) (*Groth16Checker, error) {
	vk, err := os.ReadFile(verificationKeyPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading verification key: %s", verificationKeyPath)
	}
	if len(vk) == 0 {
		return nil, errors.Errorf("verification key file is empty: %s", verificationKeyPath)
	}
	return &Groth16Checker{verificationKey: vk}, nil
}

func (g *Groth16Checker) Mode() Mode {
	return ModeGroth16
}

// Check unpacks the proof points into Groth16 form and verifies them against the
// public signals [root, nullifier, hash(message), hash(scope)].
func (g *Groth16Checker) Check(_ context.Context, proof Proof) error {
	if len(proof.Points) != PointCount {
		return errors.Errorf("expected %d proof points, got %d", PointCount, len(proof.Points))
	}

	p := make([]string, PointCount)
	for i, point := range proof.Points {
		if point == nil {
			return errors.Errorf("proof point %d is missing", i)
		}
		p[i] = point.String()
	}

	zkProof := types.ZKProof{
		Proof: &types.ProofData{
			Protocol: "groth16",
			A:        []string{p[0], p[1], "1"},
			// packed points carry each G2 coordinate pair in reversed order
			B: [][]string{{p[3], p[2]}, {p[5], p[4]}, {"1", "0"}},
			C: []string{p[6], p[7], "1"},
		},
		PubSignals: []string{
			proof.MerkleTreeRoot.String(),
			proof.Nullifier.String(),
			hashSignal(proof.Message).String(),
			hashSignal(proof.Scope).String(),
		},
	}

	if err := verifier.VerifyGroth16(zkProof, g.verificationKey); err != nil {
		return errors.Wrap(err, "groth16 verification failed")
	}
	return nil
}

// hashSignal maps an arbitrary message or scope value into the scalar field the way
// provers do: keccak256 over the 32-byte big-endian encoding, right-shifted by 8 bits.
func hashSignal(value *big.Int) *big.Int {
	h := sha3.NewLegacyKeccak256()
	h.Write(value.FillBytes(make([]byte, 32)))
	return new(big.Int).Rsh(new(big.Int).SetBytes(h.Sum(nil)), 8)
}
