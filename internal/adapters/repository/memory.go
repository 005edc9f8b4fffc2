package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/upskill/internal/domain/model"
)

// MemoryStore keeps everything in process memory. Transactions hold the
// store lock for their whole duration and buffer writes in an overlay.
type MemoryStore struct {
	mu      sync.RWMutex
	closed  bool
	now     func() time.Time
	profile map[string][]byte
	focus   map[string][]byte
	audit   map[string][][]byte
	idem    map[string][]byte
	roles   map[string][]byte
	modules map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:     time.Now,
		profile: make(map[string][]byte),
		focus:   make(map[string][]byte),
		audit:   make(map[string][][]byte),
		idem:    make(map[string][]byte),
		roles:   make(map[string][]byte),
		modules: make(map[string][]byte),
	}
}

func idemKey(userID, key string) string { return userID + "\x00" + key }

// Driver implements Store.
func (s *MemoryStore) Driver() string { return DriverMemory }

// Atomically implements Store.
func (s *MemoryStore) Atomically(ctx context.Context, fn func(tx Tx) error) (err error) {
	start := time.Now()
	defer func() { observe(DriverMemory, "tx", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	tx := &memTx{s: s}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	tx.commit()
	return nil
}

// PutRole implements Store.
func (s *MemoryStore) PutRole(_ context.Context, role model.RoleRequirements) error {
	b, err := encode(role)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.roles[role.RoleID] = b
	return nil
}

// PutModule implements Store.
func (s *MemoryStore) PutModule(_ context.Context, module model.ModuleMeta) error {
	b, err := encode(module)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.modules[module.ModuleID] = b
	return nil
}

// CountProfiles implements Store.
func (s *MemoryStore) CountProfiles(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profile), nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MemoryStore) view() (*memTx, func(), error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, nil, ErrClosed
	}
	return &memTx{s: s}, s.mu.RUnlock, nil
}

// LoadProfile implements Reader.
func (s *MemoryStore) LoadProfile(ctx context.Context, userID string) (*model.UserSkillProfile, error) {
	v, done, err := s.view()
	if err != nil {
		return nil, err
	}
	defer done()
	return v.LoadProfile(ctx, userID)
}

// LoadFocus implements Reader.
func (s *MemoryStore) LoadFocus(ctx context.Context, userID string) (*model.FocusSet, error) {
	v, done, err := s.view()
	if err != nil {
		return nil, err
	}
	defer done()
	return v.LoadFocus(ctx, userID)
}

// LoadAudit implements Reader.
func (s *MemoryStore) LoadAudit(ctx context.Context, userID string) ([]model.AuditEntry, error) {
	v, done, err := s.view()
	if err != nil {
		return nil, err
	}
	defer done()
	return v.LoadAudit(ctx, userID)
}

// LoadIdempotency implements Reader.
func (s *MemoryStore) LoadIdempotency(ctx context.Context, userID, key string) (*model.IdempotencyRecord, error) {
	v, done, err := s.view()
	if err != nil {
		return nil, err
	}
	defer done()
	return v.LoadIdempotency(ctx, userID, key)
}

// GetRoleRequirements implements Reader.
func (s *MemoryStore) GetRoleRequirements(ctx context.Context, roleID string) (*model.RoleRequirements, error) {
	v, done, err := s.view()
	if err != nil {
		return nil, err
	}
	defer done()
	return v.GetRoleRequirements(ctx, roleID)
}

// GetModule implements Reader.
func (s *MemoryStore) GetModule(ctx context.Context, moduleID string) (*model.ModuleMeta, error) {
	v, done, err := s.view()
	if err != nil {
		return nil, err
	}
	defer done()
	return v.GetModule(ctx, moduleID)
}

// ListModules implements Reader.
func (s *MemoryStore) ListModules(ctx context.Context) ([]model.ModuleMeta, error) {
	v, done, err := s.view()
	if err != nil {
		return nil, err
	}
	defer done()
	return v.ListModules(ctx)
}

// memTx reads through its overlay to the store maps. The caller holds s.mu.
type memTx struct {
	s       *MemoryStore
	profile map[string][]byte
	focus   map[string][]byte
	audit   map[string][][]byte
	idem    map[string][]byte
}

func (t *memTx) commit() {
	for k, v := range t.profile {
		t.s.profile[k] = v
	}
	for k, v := range t.focus {
		t.s.focus[k] = v
	}
	for k, v := range t.audit {
		t.s.audit[k] = append(t.s.audit[k], v...)
	}
	for k, v := range t.idem {
		t.s.idem[k] = v
	}
}

func lookup(overlay, base map[string][]byte, key string) []byte {
	if b, ok := overlay[key]; ok {
		return b
	}
	return base[key]
}

func (t *memTx) LoadProfile(_ context.Context, userID string) (*model.UserSkillProfile, error) {
	b := lookup(t.profile, t.s.profile, userID)
	if b == nil {
		return nil, nil
	}
	var p model.UserSkillProfile
	if err := decode(b, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *memTx) LoadFocus(_ context.Context, userID string) (*model.FocusSet, error) {
	b := lookup(t.focus, t.s.focus, userID)
	if b == nil {
		return nil, nil
	}
	var f model.FocusSet
	if err := decode(b, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (t *memTx) LoadAudit(_ context.Context, userID string) ([]model.AuditEntry, error) {
	rows := append(append([][]byte(nil), t.s.audit[userID]...), t.audit[userID]...)
	out := make([]model.AuditEntry, 0, len(rows))
	for _, b := range rows {
		var e model.AuditEntry
		if err := decode(b, &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (t *memTx) LoadIdempotency(_ context.Context, userID, key string) (*model.IdempotencyRecord, error) {
	b := lookup(t.idem, t.s.idem, idemKey(userID, key))
	if b == nil {
		return nil, nil
	}
	var rec model.IdempotencyRecord
	if err := decode(b, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (t *memTx) GetRoleRequirements(_ context.Context, roleID string) (*model.RoleRequirements, error) {
	b := t.s.roles[roleID]
	if b == nil {
		return nil, nil
	}
	var r model.RoleRequirements
	if err := decode(b, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (t *memTx) GetModule(_ context.Context, moduleID string) (*model.ModuleMeta, error) {
	b := t.s.modules[moduleID]
	if b == nil {
		return nil, nil
	}
	var m model.ModuleMeta
	if err := decode(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (t *memTx) ListModules(context.Context) ([]model.ModuleMeta, error) {
	ids := make([]string, 0, len(t.s.modules))
	for id := range t.s.modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]model.ModuleMeta, 0, len(ids))
	for _, id := range ids {
		var m model.ModuleMeta
		if err := decode(t.s.modules[id], &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (t *memTx) SaveProfile(_ context.Context, p *model.UserSkillProfile) error {
	if p == nil {
		return fmt.Errorf("%w: nil profile", ErrStorage)
	}
	b, err := encode(p)
	if err != nil {
		return err
	}
	if t.profile == nil {
		t.profile = make(map[string][]byte)
	}
	t.profile[p.UserID] = b
	return nil
}

func (t *memTx) UpsertFocus(_ context.Context, userID string, set model.FocusSet) error {
	b, err := encode(set)
	if err != nil {
		return err
	}
	if t.focus == nil {
		t.focus = make(map[string][]byte)
	}
	t.focus[userID] = b
	return nil
}

func (t *memTx) AppendAudit(_ context.Context, userID string, entry *model.AuditEntry) error {
	stamp(entry, t.s.now())
	b, err := encode(entry)
	if err != nil {
		return err
	}
	if t.audit == nil {
		t.audit = make(map[string][][]byte)
	}
	t.audit[userID] = append(t.audit[userID], b)
	return nil
}

func (t *memTx) StoreIdempotency(_ context.Context, userID, key string, rec model.IdempotencyRecord) error {
	k := idemKey(userID, key)
	if lookup(t.idem, t.s.idem, k) != nil {
		return fmt.Errorf("%w: user %s key %s", ErrKeyExists, userID, key)
	}
	b, err := encode(rec)
	if err != nil {
		return err
	}
	if t.idem == nil {
		t.idem = make(map[string][]byte)
	}
	t.idem[k] = b
	return nil
}
