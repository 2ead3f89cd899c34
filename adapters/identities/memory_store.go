package identities

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vaultline/warden/core"
	"github.com/vaultline/warden/ports"
)

// MemoryStore is an in-memory IdentityStore for tests.
type MemoryStore struct {
	mu        sync.Mutex
	byAddress map[string]*core.Identity
	byEmail   map[string]*core.Identity
	byID      map[string]*core.Identity
	hasher    ports.SecretHasher
}

// NewMemoryStore creates a new in-memory identity store.
func NewMemoryStore(hasher ports.SecretHasher) *MemoryStore {
	return &MemoryStore{
		byAddress: make(map[string]*core.Identity),
		byEmail:   make(map[string]*core.Identity),
		byID:      make(map[string]*core.Identity),
		hasher:    hasher,
	}
}

// Add seeds an identity, hashing the password when one is given.
func (s *MemoryStore) Add(identity core.Identity, password string) (*core.Identity, error) {
	if identity.ID == "" {
		identity.ID = uuid.New().String()
	}
	if identity.Role == "" {
		identity.Role = core.RoleUser
	}
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now()
	}
	if password != "" {
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return nil, err
		}
		identity.PasswordHash = hash
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.index(&identity)
	return clone(&identity), nil
}

// clone detaches a result from the interior row so callers cannot mutate the
// store through it.
func clone(identity *core.Identity) *core.Identity {
	copied := *identity
	return &copied
}

func (s *MemoryStore) index(identity *core.Identity) {
	if identity.Address != "" {
		s.byAddress[identity.Address] = identity
	}
	if identity.Email != "" {
		s.byEmail[identity.Email] = identity
	}
	s.byID[identity.ID] = identity
}

// ResolveOrCreateByAddress finds or creates under one mutex hold, mirroring
// the conflict-tolerant insert of the relational store.
func (s *MemoryStore) ResolveOrCreateByAddress(ctx context.Context, address string) (*core.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byAddress[address]; ok {
		return clone(existing), nil
	}
	identity := &core.Identity{
		ID:        uuid.New().String(),
		Address:   address,
		Email:     core.PlaceholderEmail(address),
		Role:      core.RoleUser,
		CreatedAt: time.Now(),
	}
	s.index(identity)
	return clone(identity), nil
}

// ResolveByEmailPassword returns the identity iff the password matches.
func (s *MemoryStore) ResolveByEmailPassword(ctx context.Context, email, password string) (*core.Identity, error) {
	s.mu.Lock()
	identity, ok := s.byEmail[email]
	s.mu.Unlock()

	if !ok || identity.PasswordHash == "" {
		return nil, core.ErrUnauthorized
	}
	match, err := s.hasher.Compare(password, identity.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !match {
		return nil, core.ErrUnauthorized
	}
	return clone(identity), nil
}

// GetByID returns the identity or core.ErrIdentityNotFound.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*core.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.byID[id]
	if !ok {
		return nil, core.ErrIdentityNotFound
	}
	return clone(identity), nil
}

var _ ports.IdentityStore = (*MemoryStore)(nil)
