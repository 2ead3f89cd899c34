// Package identities implements the identity directory adapters.
package identities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vaultline/warden/core"
	"github.com/vaultline/warden/ports"
)

// IdentityModel is the GORM model backing the identities table.
type IdentityModel struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Address      string    `gorm:"uniqueIndex;size:56"`
	Email        string    `gorm:"uniqueIndex;size:255"`
	PasswordHash string    `gorm:"size:255"`
	Role         string    `gorm:"size:32"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// TableName keeps the table name stable across GORM naming strategies.
func (IdentityModel) TableName() string { return "identities" }

func (m *IdentityModel) toCore() *core.Identity {
	return &core.Identity{
		ID:           m.ID,
		Address:      m.Address,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         m.Role,
		CreatedAt:    m.CreatedAt,
	}
}

// GormStore is a relational IdentityStore.
type GormStore struct {
	db     *gorm.DB
	hasher ports.SecretHasher
}

// NewGormStore creates the store and migrates the identities table.
func NewGormStore(db *gorm.DB, hasher ports.SecretHasher) (*GormStore, error) {
	if err := db.AutoMigrate(&IdentityModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate identities: %w", err)
	}
	return &GormStore{db: db, hasher: hasher}, nil
}

// ResolveOrCreateByAddress finds the identity owning the address, creating it
// on first proof. The insert is conflict-tolerant on the unique address
// column, so concurrent first-logins for the same address converge on one
// row instead of racing a read-then-write.
func (s *GormStore) ResolveOrCreateByAddress(ctx context.Context, address string) (*core.Identity, error) {
	candidate := IdentityModel{
		ID:      uuid.New().String(),
		Address: address,
		Email:   core.PlaceholderEmail(address),
		// Empty password hash marks a proof-of-key credential.
		PasswordHash: "",
		Role:         core.RoleUser,
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "address"}}, DoNothing: true}).
		Create(&candidate).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	var row IdentityModel
	if err := s.db.WithContext(ctx).Where("address = ?", address).First(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	return row.toCore(), nil
}

// ResolveByEmailPassword returns the identity iff the password matches its
// stored hash. Misses and mismatches collapse to core.ErrUnauthorized so the
// caller cannot tell an unknown email from a wrong password.
func (s *GormStore) ResolveByEmailPassword(ctx context.Context, email, password string) (*core.Identity, error) {
	var row IdentityModel
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	if row.PasswordHash == "" {
		// Proof-of-key identity, no password credential to match.
		return nil, core.ErrUnauthorized
	}

	match, err := s.hasher.Compare(password, row.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("%w: password compare failed", core.ErrInternal)
	}
	if !match {
		return nil, core.ErrUnauthorized
	}
	return row.toCore(), nil
}

// GetByID returns the identity or core.ErrIdentityNotFound.
func (s *GormStore) GetByID(ctx context.Context, id string) (*core.Identity, error) {
	var row IdentityModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	return row.toCore(), nil
}

var _ ports.IdentityStore = (*GormStore)(nil)
