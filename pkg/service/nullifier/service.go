// Package nullifier tracks consumed (nullifier, scope) pairs to enforce
// at-most-one-use of a proof per scope.
package nullifier

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/praxy-health/zkid-service/pkg/service/framework"
	"github.com/praxy-health/zkid-service/pkg/storage"
)

const namespace = "nullifier"

// Record is written on the first successful verification of a (nullifier, scope)
// pair and never mutated.
type Record struct {
	Nullifier string `json:"nullifier"`
	Scope     string `json:"scope"`
	UsedAt    string `json:"usedAt"`
}

// Service persists nullifier records in the same durable storage as credentials,
// so replay stays impossible across process restarts and redeploys.
type Service struct {
	db    storage.ServiceStorage
	clock clock.Clock
}

func (s *Service) Type() framework.Type {
	return framework.Nullifier
}

func (s *Service) Status() framework.Status {
	if s.db == nil {
		return framework.Status{Status: framework.StatusNotReady, Message: "no storage configured"}
	}
	return framework.Status{Status: framework.StatusReady}
}

func NewNullifierService(db storage.ServiceStorage) (*Service, error) {
	if db == nil {
		return nil, errors.New("db reference is required")
	}
	return &Service{db: db, clock: clock.New()}, nil
}

// IsUsed reports whether the (nullifier, scope) pair has already been consumed.
func (s *Service) IsUsed(ctx context.Context, nullifier, scope string) (bool, error) {
	recordBytes, err := s.db.Read(ctx, namespace, recordKey(nullifier, scope))
	if err != nil {
		return false, errors.Wrap(err, "reading nullifier record")
	}
	return len(recordBytes) > 0, nil
}

// Mark consumes the pair with an atomic insert-if-absent: of two concurrent
// verifications of the same proof exactly one observes recorded == true.
func (s *Service) Mark(ctx context.Context, nullifier, scope string) (recorded bool, err error) {
	record := Record{
		Nullifier: nullifier,
		Scope:     scope,
		UsedAt:    s.clock.Now().UTC().Format(time.RFC3339),
	}
	recordBytes, err := json.Marshal(record)
	if err != nil {
		return false, errors.Wrap(err, "marshalling nullifier record")
	}
	recorded, err = s.db.WriteIfAbsent(ctx, namespace, recordKey(nullifier, scope), recordBytes)
	if err != nil {
		return false, errors.Wrap(err, "writing nullifier record")
	}
	return recorded, nil
}

func recordKey(nullifier, scope string) string {
	return fmt.Sprintf("%s!%s", nullifier, scope)
}
