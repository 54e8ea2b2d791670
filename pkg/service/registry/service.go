// Package registry binds approved credentials to anonymous identity commitments,
// one commitment per credential.
package registry

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/praxy-health/zkid-service/internal/util"
	"github.com/praxy-health/zkid-service/pkg/service/framework"
	"github.com/praxy-health/zkid-service/pkg/service/ledger"
	"github.com/praxy-health/zkid-service/pkg/storage"
)

var (
	// ErrAlreadyLinked signals an idempotent re-link: same credential, same
	// commitment. Not an error state from the caller's perspective.
	ErrAlreadyLinked = errors.New("credential already linked with this commitment")
	// ErrCredentialAlreadyBound enforces one wallet per credential: the credential
	// is linked to a different commitment and the original link is unchanged.
	ErrCredentialAlreadyBound = errors.New("credential already bound to a different commitment")
	// ErrInvalidCommitment rejects commitments that are not decimal integers.
	ErrInvalidCommitment = errors.New("invalid commitment")
)

type Service struct {
	ledger  *ledger.Service
	storage *Storage
	clock   clock.Clock
	// onChange is invoked after every successful mutation, so derived state
	// (the cached group root) can be invalidated.
	onChange func()
}

func (s *Service) Type() framework.Type {
	return framework.Registry
}

func (s *Service) Status() framework.Status {
	if s.storage == nil {
		return framework.Status{Status: framework.StatusNotReady, Message: "no storage configured"}
	}
	return framework.Status{Status: framework.StatusReady}
}

func NewRegistryService(ledgerService *ledger.Service, db storage.ServiceStorage) (*Service, error) {
	if ledgerService == nil {
		return nil, errors.New("ledger service is required")
	}
	registryStorage, err := NewRegistryStorage(db)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "instantiating storage for the registry service")
	}
	return &Service{
		ledger:  ledgerService,
		storage: registryStorage,
		clock:   clock.New(),
	}, nil
}

// SetChangeListener registers the callback invoked after every mutation.
func (s *Service) SetChangeListener(fn func()) {
	s.onChange = fn
}

type LinkRequest struct {
	CredentialID string
	GivenName    string
	FamilyName   string
	Commitment   string
}

// Link binds the credential to the commitment. The check-for-existing/persist-new
// sequence is atomic per credential id via the storage conditional write, so two
// concurrent linkers cannot both win.
func (s *Service) Link(ctx context.Context, request LinkRequest) (*LinkedCredential, error) {
	if err := validateCommitment(request.Commitment); err != nil {
		return nil, err
	}

	credential, err := s.ledger.VerifyCredential(request.CredentialID, request.GivenName, request.FamilyName)
	if err != nil {
		return nil, err
	}

	linked := LinkedCredential{
		Credential: *credential,
		Commitment: request.Commitment,
		LinkedAt:   s.clock.Now().UTC().Format(time.RFC3339),
	}
	created, existing, err := s.storage.CreateLinkedCredential(ctx, credentialKey(credential.CredentialID), linked)
	if err != nil {
		return nil, err
	}
	if !created {
		if existing == nil {
			return nil, errors.Errorf("linked credential<%s> vanished during linking", credential.CredentialID)
		}
		if existing.Commitment == request.Commitment {
			return nil, errors.Wrapf(ErrAlreadyLinked, "credential: %s", credential.CredentialID)
		}
		logrus.WithField("credential_id", util.SanitizeLog(credential.CredentialID)).
			Info("rejected relink with a different commitment")
		return nil, errors.Wrapf(ErrCredentialAlreadyBound, "credential: %s", credential.CredentialID)
	}

	s.notifyChange()
	return &linked, nil
}

// Revoke deletes the link if present and reports whether a deletion occurred.
func (s *Service) Revoke(ctx context.Context, credentialID string) (bool, error) {
	deleted, err := s.storage.DeleteLinkedCredential(ctx, credentialKey(credentialID))
	if err != nil {
		return false, err
	}
	if deleted {
		s.notifyChange()
	}
	return deleted, nil
}

// AllLinked returns all linked credentials in insertion order. Used by the group
// builder and diagnostics.
func (s *Service) AllLinked(ctx context.Context) ([]LinkedCredential, error) {
	return s.storage.ListLinkedCredentials(ctx)
}

// Sync replaces the full registry contents atomically, a coarse alternative to
// incremental Link calls used to reconcile a client-held view with the server.
func (s *Service) Sync(ctx context.Context, credentials []LinkedCredential) error {
	keys := make([]string, 0, len(credentials))
	seen := make(map[string]struct{}, len(credentials))
	now := s.clock.Now().UTC().Format(time.RFC3339)
	for i := range credentials {
		if credentials[i].CredentialID == "" {
			return errors.New("sync entry missing credential id")
		}
		if err := validateCommitment(credentials[i].Commitment); err != nil {
			return errors.Wrapf(err, "sync entry for credential: %s", credentials[i].CredentialID)
		}
		key := credentialKey(credentials[i].CredentialID)
		if _, duplicate := seen[key]; duplicate {
			return errors.Errorf("duplicate credential id in sync payload: %s", credentials[i].CredentialID)
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
		if credentials[i].LinkedAt == "" {
			credentials[i].LinkedAt = now
		}
	}
	if err := s.storage.ReplaceAllLinkedCredentials(ctx, keys, credentials); err != nil {
		return err
	}
	s.notifyChange()
	return nil
}

func (s *Service) notifyChange() {
	if s.onChange != nil {
		s.onChange()
	}
}

func validateCommitment(commitment string) error {
	if commitment == "" {
		return errors.Wrap(ErrInvalidCommitment, "commitment is required")
	}
	if _, ok := new(big.Int).SetString(commitment, 10); !ok {
		return errors.Wrapf(ErrInvalidCommitment, "commitment is not a decimal integer: %s", commitment)
	}
	return nil
}

func credentialKey(credentialID string) string {
	return strings.ToUpper(strings.TrimSpace(credentialID))
}
