package zk

import (
	"context"

	"github.com/sirupsen/logrus"
)

// TrustedRootChecker accepts every structurally valid proof without running the
// cryptographic check. It exists so clients without proving artifacts can exercise
// the rest of the verification pipeline during development.
type TrustedRootChecker struct{}

func NewTrustedRootChecker() *TrustedRootChecker {
	logrus.Warn("proof checking is running in trusted-root mode; proofs are NOT cryptographically verified")
	return &TrustedRootChecker{}
}

func (t *TrustedRootChecker) Mode() Mode {
	return ModeTrustedRoot
}

func (t *TrustedRootChecker) Check(_ context.Context, _ Proof) error {
	return nil
}
