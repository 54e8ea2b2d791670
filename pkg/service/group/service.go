// Package group derives the anonymous membership group from the registry's
// current contents.
package group

import (
	"context"
	"math/big"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/praxy-health/zkid-service/config"
	"github.com/praxy-health/zkid-service/internal/merkle"
	"github.com/praxy-health/zkid-service/pkg/service/framework"
	"github.com/praxy-health/zkid-service/pkg/service/registry"
)

// ErrEmptyGroup signals that no credentials are linked; membership proofs are
// undefined over zero members.
var ErrEmptyGroup = errors.New("group is empty")

// Group is derived state: the ordered commitment sequence and its Merkle root.
// It is rebuilt from storage, never persisted.
type Group struct {
	Root    *big.Int
	Members []string
	Depth   int
}

type Service struct {
	config   config.GroupServiceConfig
	registry *registry.Service
	// cache is nil unless a TTL is configured; the default is to always recompute,
	// which is the only safe policy across concurrent stateless instances.
	cache *rootCache
}

func (s *Service) Type() framework.Type {
	return framework.Group
}

func (s *Service) Status() framework.Status {
	if s.registry == nil {
		return framework.Status{Status: framework.StatusNotReady, Message: "no registry configured"}
	}
	return framework.Status{Status: framework.StatusReady}
}

func NewGroupService(cfg config.GroupServiceConfig, registryService *registry.Service) (*Service, error) {
	if registryService == nil {
		return nil, errors.New("registry service is required")
	}
	service := &Service{config: cfg, registry: registryService}
	if cfg.CacheTTL > 0 {
		service.cache = newRootCache(clock.New(), cfg.CacheTTL)
		registryService.SetChangeListener(service.Invalidate)
	}
	return service, nil
}

// CurrentGroup computes the group over the registry's current persisted state.
// The member order is the registry's insertion order, so the root is reproducible
// for a fixed storage state. Safe for concurrent use.
func (s *Service) CurrentGroup(ctx context.Context) (*Group, error) {
	if s.cache != nil {
		if cached := s.cache.get(); cached != nil {
			return cached, nil
		}
	}

	linked, err := s.registry.AllLinked(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading linked credentials")
	}
	if len(linked) == 0 {
		return nil, ErrEmptyGroup
	}

	members := make([]string, 0, len(linked))
	leaves := make([]*big.Int, 0, len(linked))
	for _, credential := range linked {
		leaf, ok := new(big.Int).SetString(credential.Commitment, 10)
		if !ok {
			return nil, errors.Errorf("stored commitment is not a decimal integer: %s", credential.Commitment)
		}
		members = append(members, credential.Commitment)
		leaves = append(leaves, leaf)
	}

	root, err := merkle.Root(leaves)
	if err != nil {
		return nil, errors.Wrap(err, "computing group root")
	}

	group := &Group{Root: root, Members: members, Depth: merkle.Depth(len(leaves))}
	if s.cache != nil {
		s.cache.set(group)
	}
	return group, nil
}

// Invalidate drops any cached group. Called on every registry mutation.
func (s *Service) Invalidate() {
	if s.cache != nil {
		s.cache.invalidate()
	}
}
