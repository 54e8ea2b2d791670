// Package storage provides the key-value persistence abstraction the services run on,
// independent of the DB provider. A backend is selected once at startup via NewStorage;
// services never inspect the environment to pick one.
package storage

import (
	"context"

	"github.com/pkg/errors"
)

type (
	Type      string
	OptionKey string
)

const (
	Memory Type = "memory"
	Bolt   Type = "bolt"
	Redis  Type = "redis"

	BoltFilePathOption  OptionKey = "bolt-file-path-option"
	RedisAddressOption  OptionKey = "redis-address-option"
	RedisPasswordOption OptionKey = "redis-password-option"
)

// ErrUnavailable is the cause of every error produced by a backend I/O failure.
// Callers must surface it as a server fault and never substitute defaults.
var ErrUnavailable = errors.New("storage unavailable")

// IsUnavailable reports whether err stems from a backend I/O failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// unavailable wraps a backend failure so ErrUnavailable is in its chain.
func unavailable(err error, msg string) error {
	return errors.Wrap(errors.Wrap(ErrUnavailable, err.Error()), msg)
}

// Option is a backend-specific configuration value passed to NewStorage.
type Option struct {
	ID     OptionKey
	Option any
}

// SetEntry pairs a set member with its keyed value for bulk replacement.
type SetEntry struct {
	Member string
	Value  []byte
}

// ServiceStorage describes the api for storage independent of DB providers.
//
// Reads of absent keys return (nil, nil). Writes are effective immediately to any
// subsequent reader of the same deployment. WriteIfAbsent and AddToSet are atomic:
// of two concurrent callers for the same key at most one observes "absent".
// Set members keep insertion order, which is load-bearing for Merkle leaf ordering.
type ServiceStorage interface {
	Type() Type
	URI() string
	IsOpen() bool
	Close() error

	Write(ctx context.Context, namespace, key string, value []byte) error
	// WriteIfAbsent writes only if the key has no value yet; it reports whether
	// this call performed the write.
	WriteIfAbsent(ctx context.Context, namespace, key string, value []byte) (bool, error)
	Read(ctx context.Context, namespace, key string) ([]byte, error)
	ReadAll(ctx context.Context, namespace string) (map[string][]byte, error)
	Delete(ctx context.Context, namespace, key string) error
	DeleteNamespace(ctx context.Context, namespace string) error

	// AddToSet appends the member if absent, preserving insertion order.
	AddToSet(ctx context.Context, namespace, setKey, member string) error
	RemoveFromSet(ctx context.Context, namespace, setKey, member string) error
	// SetMembers returns members in insertion order.
	SetMembers(ctx context.Context, namespace, setKey string) ([]string, error)
	ClearSet(ctx context.Context, namespace, setKey string) error

	// ReplaceAll atomically replaces the namespace's keyed values and the named
	// set with the given entries, in order. Used for full-state sync.
	ReplaceAll(ctx context.Context, namespace, setKey string, entries []SetEntry) error
}

// NewStorage resolves the configured backend type once and instantiates it.
func NewStorage(storageType Type, opts ...Option) (ServiceStorage, error) {
	switch storageType {
	case Memory:
		return NewMemoryDB(), nil
	case Bolt:
		return NewBoltDB(opts...)
	case Redis:
		return NewRedisDB(opts...)
	default:
		return nil, errors.Errorf("unsupported storage provider: %s", storageType)
	}
}

// AvailableStorage lists the backends NewStorage can construct.
func AvailableStorage() []Type {
	return []Type{Memory, Bolt, Redis}
}

// IsStorageAvailable reports whether the given provider name is a known backend.
func IsStorageAvailable(storageType Type) bool {
	for _, t := range AvailableStorage() {
		if t == storageType {
			return true
		}
	}
	return false
}
