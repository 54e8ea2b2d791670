package verification

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/praxy-health/zkid-service/config"
	"github.com/praxy-health/zkid-service/internal/util"
	"github.com/praxy-health/zkid-service/internal/zk"
	"github.com/praxy-health/zkid-service/pkg/service/framework"
	"github.com/praxy-health/zkid-service/pkg/service/group"
	"github.com/praxy-health/zkid-service/pkg/service/nullifier"
)

// Service verifies membership proofs against the current group. Checks run in
// a fixed order so rejected proofs always surface the same class of error for
// the same input, regardless of how many other checks would also fail.
type Service struct {
	config     config.VerificationServiceConfig
	group      *group.Service
	nullifiers *nullifier.Service
	checker    zk.ProofChecker
	clock      clock.Clock
}

func (s *Service) Type() framework.Type {
	return framework.Verification
}

func (s *Service) Status() framework.Status {
	if s.group == nil || s.nullifiers == nil || s.checker == nil {
		return framework.Status{
			Status:  framework.StatusNotReady,
			Message: "no verifier configured",
		}
	}
	return framework.Status{Status: framework.StatusReady}
}

func NewVerificationService(cfg config.VerificationServiceConfig, groupService *group.Service, nullifierService *nullifier.Service, checker zk.ProofChecker) (*Service, error) {
	if groupService == nil {
		return nil, errors.New("group service is required")
	}
	if nullifierService == nil {
		return nil, errors.New("nullifier service is required")
	}
	if checker == nil {
		return nil, errors.New("proof checker is required")
	}
	service := Service{
		config:     cfg,
		group:      groupService,
		nullifiers: nullifierService,
		checker:    checker,
		clock:      clock.New(),
	}
	if !service.Status().IsReady() {
		return nil, errors.New("verification service is not ready")
	}
	return &service, nil
}

// VerifyProof runs the full check sequence: structure, group root, scope,
// replay, cryptographic validity, and finally the atomic nullifier commit. A
// structurally invalid proof is rejected before any stored state is read.
// expectedScope may be empty, in which case the proof's own scope binding is
// accepted as-is.
func (s *Service) VerifyProof(ctx context.Context, proof Proof, expectedScope string) (*Verified, error) {
	parsed, err := proof.parse()
	if err != nil {
		logrus.WithError(err).Info("rejected malformed proof")
		return nil, err
	}

	currentGroup, err := s.group.CurrentGroup(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "resolving current group")
	}
	if parsed.MerkleTreeRoot.Cmp(currentGroup.Root) != 0 {
		mismatch := GroupMismatchError{
			ProvidedRoot: parsed.MerkleTreeRoot.String(),
			ExpectedRoot: currentGroup.Root.String(),
		}
		logrus.WithFields(logrus.Fields{
			"provided": mismatch.ProvidedRoot,
			"expected": mismatch.ExpectedRoot,
		}).Info("rejected proof for stale group root")
		return nil, &mismatch
	}

	scope := parsed.Scope.String()
	if expectedScope != "" && scope != expectedScope {
		logrus.WithFields(logrus.Fields{
			"proofScope":    scope,
			"expectedScope": util.SanitizeLog(expectedScope),
		}).Info("rejected proof for wrong scope")
		return nil, &ScopeMismatchError{ProofScope: scope, ExpectedScope: expectedScope}
	}

	nullifierValue := parsed.Nullifier.String()
	used, err := s.nullifiers.IsUsed(ctx, nullifierValue, scope)
	if err != nil {
		return nil, errors.Wrap(err, "checking nullifier")
	}
	if used {
		logrus.WithField("scope", scope).Info("rejected replayed proof")
		return nil, ErrNullifierReused
	}

	if err = s.checkProof(ctx, *parsed); err != nil {
		logrus.WithError(err).Info("rejected proof")
		return nil, err
	}

	recorded, err := s.nullifiers.Mark(ctx, nullifierValue, scope)
	if err != nil {
		return nil, errors.Wrap(err, "recording nullifier")
	}
	if !recorded {
		// Lost the race to a concurrent submission of the same proof.
		logrus.WithField("scope", scope).Info("rejected replayed proof")
		return nil, ErrNullifierReused
	}

	return &Verified{
		Nullifier:  nullifierValue,
		Scope:      scope,
		GroupRoot:  currentGroup.Root.String(),
		VerifiedAt: s.clock.Now().UTC().Format(time.RFC3339),
	}, nil
}

// checkProof bounds the cryptographic check by the configured timeout. A check
// that does not finish in time counts as a failed verification.
func (s *Service) checkProof(ctx context.Context, proof zk.Proof) error {
	timeout := s.config.ProofCheckTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.checker.Check(ctx, proof)
	}()

	select {
	case err := <-done:
		if err != nil {
			return errors.Wrap(ErrInvalidProof, err.Error())
		}
		return nil
	case <-ctx.Done():
		return ErrVerificationTimeout
	}
}
