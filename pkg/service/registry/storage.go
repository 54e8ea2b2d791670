package registry

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/praxy-health/zkid-service/pkg/storage"
)

const (
	namespace    = "registry"
	linkedSetKey = "linked-credentials"
)

type Storage struct {
	db storage.ServiceStorage
}

func NewRegistryStorage(db storage.ServiceStorage) (*Storage, error) {
	if db == nil {
		return nil, errors.New("db reference is required")
	}
	return &Storage{db: db}, nil
}

// CreateLinkedCredential writes the record only if the credential id is unlinked.
// The conditional write makes concurrent linkers race safely: exactly one creates,
// the rest observe the winner's record, which is returned when created is false.
func (s *Storage) CreateLinkedCredential(ctx context.Context, key string, credential LinkedCredential) (created bool, existing *LinkedCredential, err error) {
	credentialBytes, err := json.Marshal(credential)
	if err != nil {
		return false, nil, errors.Wrap(err, "marshalling linked credential")
	}
	created, err = s.db.WriteIfAbsent(ctx, namespace, key, credentialBytes)
	if err != nil {
		return false, nil, errors.Wrap(err, "writing linked credential")
	}
	if created {
		if err = s.db.AddToSet(ctx, namespace, linkedSetKey, key); err != nil {
			return false, nil, errors.Wrap(err, "recording linked credential membership")
		}
		return true, nil, nil
	}
	existing, err = s.GetLinkedCredential(ctx, key)
	if err != nil {
		return false, nil, err
	}
	return false, existing, nil
}

func (s *Storage) GetLinkedCredential(ctx context.Context, key string) (*LinkedCredential, error) {
	credentialBytes, err := s.db.Read(ctx, namespace, key)
	if err != nil {
		return nil, errors.Wrapf(err, "reading linked credential: %s", key)
	}
	if len(credentialBytes) == 0 {
		return nil, nil
	}
	var credential LinkedCredential
	if err = json.Unmarshal(credentialBytes, &credential); err != nil {
		return nil, errors.Wrapf(err, "unmarshalling linked credential: %s", key)
	}
	return &credential, nil
}

// DeleteLinkedCredential removes the record and reports whether anything was deleted.
func (s *Storage) DeleteLinkedCredential(ctx context.Context, key string) (bool, error) {
	existing, err := s.GetLinkedCredential(ctx, key)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}
	if err = s.db.Delete(ctx, namespace, key); err != nil {
		return false, errors.Wrapf(err, "deleting linked credential: %s", key)
	}
	if err = s.db.RemoveFromSet(ctx, namespace, linkedSetKey, key); err != nil {
		return false, errors.Wrapf(err, "removing linked credential membership: %s", key)
	}
	return true, nil
}

// ListLinkedCredentials returns linked credentials in set insertion order. The
// order is load-bearing: it is the Merkle leaf order.
func (s *Storage) ListLinkedCredentials(ctx context.Context) ([]LinkedCredential, error) {
	keys, err := s.db.SetMembers(ctx, namespace, linkedSetKey)
	if err != nil {
		return nil, errors.Wrap(err, "listing linked credential keys")
	}
	credentials := make([]LinkedCredential, 0, len(keys))
	for _, key := range keys {
		credential, err := s.GetLinkedCredential(ctx, key)
		if err != nil {
			return nil, err
		}
		if credential == nil {
			// concurrent revocation between the set read and the key read
			logrus.Debugf("linked credential<%s> disappeared during listing", key)
			continue
		}
		credentials = append(credentials, *credential)
	}
	return credentials, nil
}

// ReplaceAllLinkedCredentials swaps the entire registry contents in one atomic
// storage operation, preserving the given order.
func (s *Storage) ReplaceAllLinkedCredentials(ctx context.Context, keys []string, credentials []LinkedCredential) error {
	if len(keys) != len(credentials) {
		return errors.New("keys and credentials must be of equal length")
	}
	entries := make([]storage.SetEntry, 0, len(credentials))
	for i, credential := range credentials {
		credentialBytes, err := json.Marshal(credential)
		if err != nil {
			return errors.Wrap(err, "marshalling linked credential")
		}
		entries = append(entries, storage.SetEntry{Member: keys[i], Value: credentialBytes})
	}
	if err := s.db.ReplaceAll(ctx, namespace, linkedSetKey, entries); err != nil {
		return errors.Wrap(err, "replacing registry contents")
	}
	return nil
}
