// Package repository persists skill profiles, focus sets, audit logs and
// idempotency records, and serves the role and module catalog.
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/upskill/internal/domain/model"
)

// Drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Reader is the read side shared by stores and transactions. Lookups of
// absent keys return nil and no error.
type Reader interface {
	LoadProfile(ctx context.Context, userID string) (*model.UserSkillProfile, error)
	LoadFocus(ctx context.Context, userID string) (*model.FocusSet, error)
	// LoadAudit returns the full history for userID, oldest first.
	LoadAudit(ctx context.Context, userID string) ([]model.AuditEntry, error)
	LoadIdempotency(ctx context.Context, userID, key string) (*model.IdempotencyRecord, error)

	GetRoleRequirements(ctx context.Context, roleID string) (*model.RoleRequirements, error)
	GetModule(ctx context.Context, moduleID string) (*model.ModuleMeta, error)
	// ListModules returns the catalog ordered by module id.
	ListModules(ctx context.Context) ([]model.ModuleMeta, error)
}

// Tx is a unit of work opened by Store.Atomically. Writes become visible to
// other readers only when the callback returns nil.
type Tx interface {
	Reader

	// SaveProfile overwrites the stored profile.
	SaveProfile(ctx context.Context, p *model.UserSkillProfile) error
	UpsertFocus(ctx context.Context, userID string, set model.FocusSet) error
	// AppendAudit stamps a missing ID and TS on entry, then appends it.
	AppendAudit(ctx context.Context, userID string, entry *model.AuditEntry) error
	// StoreIdempotency writes a record once; a second write for the same
	// key fails with ErrKeyExists.
	StoreIdempotency(ctx context.Context, userID, key string, rec model.IdempotencyRecord) error
}

// Store is the durable state behind the supervisor.
type Store interface {
	Reader

	// Atomically runs fn in a transaction, committing when fn returns nil.
	Atomically(ctx context.Context, fn func(tx Tx) error) error

	PutRole(ctx context.Context, role model.RoleRequirements) error
	PutModule(ctx context.Context, module model.ModuleMeta) error

	// CountProfiles reports how many users have a profile.
	CountProfiles(ctx context.Context) (int, error)
	Driver() string
	Close() error
}

// Open returns a store for driver. path is only used by the SQLite driver.
func Open(ctx context.Context, driver, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		return OpenSQLite(ctx, path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
