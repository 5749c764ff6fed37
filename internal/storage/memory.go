package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"stakeScope/internal/model"
)

// MemoryStore keeps entities in process memory. It can be persisted to and
// restored from a JSON snapshot file.
type MemoryStore struct {
	mu   sync.Mutex
	data memoryData
}

type memoryData struct {
	Stakes           map[string]*model.Stake           `json:"stakes"`
	StakeStarts      map[string]model.StakeStartRecord `json:"stake_starts"`
	StakeEnds        map[string]model.StakeEndRecord   `json:"stake_ends"`
	GlobalState      *model.GlobalState                `json:"global_state,omitempty"`
	ShareRateChanges map[string]model.ShareRateChange  `json:"share_rate_changes"`
	Cursors          map[string]model.Cursor           `json:"cursors"`
	UpdatedAt        string                            `json:"updated_at,omitempty"`
}

func newMemoryData() memoryData {
	return memoryData{
		Stakes:           make(map[string]*model.Stake),
		StakeStarts:      make(map[string]model.StakeStartRecord),
		StakeEnds:        make(map[string]model.StakeEndRecord),
		ShareRateChanges: make(map[string]model.ShareRateChange),
		Cursors:          make(map[string]model.Cursor),
	}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemoryData()}
}

// LoadMemoryStore restores a snapshot. A missing file yields an empty store.
func LoadMemoryStore(path string) (*MemoryStore, error) {
	store := NewMemoryStore()
	if path == "" {
		return store, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	data := newMemoryData()
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	data.ensureMaps()
	store.data = data
	return store, nil
}

// SaveFile writes the snapshot atomically.
func (s *MemoryStore) SaveFile(path string) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	s.mu.Lock()
	s.data.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	raw, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write snapshot tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Apply runs fn against a staged view and merges it only if fn succeeds.
func (s *MemoryStore) Apply(ctx context.Context, fn func(tx EntityTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{base: &s.data, staged: newMemoryData()}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// LoadCursor returns the last applied position for name.
func (s *MemoryStore) LoadCursor(_ context.Context, name string) (model.Cursor, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.data.Cursors[name]
	return c, ok, nil
}

// Stake returns a copy of a committed stake.
func (s *MemoryStore) Stake(id string) (*model.Stake, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stake, ok := s.data.Stakes[id]
	return stake.Clone(), ok
}

// GlobalState returns a copy of the committed singleton.
func (s *MemoryStore) GlobalState() (*model.GlobalState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.GlobalState.Clone(), s.data.GlobalState != nil
}

// ShareRateChange returns a committed share rate change.
func (s *MemoryStore) ShareRateChange(id string) (model.ShareRateChange, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.data.ShareRateChanges[id]
	return c, ok
}

// Counts reports committed row counts per entity kind.
func (s *MemoryStore) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	global := 0
	if s.data.GlobalState != nil {
		global = 1
	}
	return map[string]int{
		"stakes":             len(s.data.Stakes),
		"stake_starts":       len(s.data.StakeStarts),
		"stake_ends":         len(s.data.StakeEnds),
		"global_state":       global,
		"share_rate_changes": len(s.data.ShareRateChanges),
	}
}

func (d *memoryData) ensureMaps() {
	if d.Stakes == nil {
		d.Stakes = make(map[string]*model.Stake)
	}
	if d.StakeStarts == nil {
		d.StakeStarts = make(map[string]model.StakeStartRecord)
	}
	if d.StakeEnds == nil {
		d.StakeEnds = make(map[string]model.StakeEndRecord)
	}
	if d.ShareRateChanges == nil {
		d.ShareRateChanges = make(map[string]model.ShareRateChange)
	}
	if d.Cursors == nil {
		d.Cursors = make(map[string]model.Cursor)
	}
}

type memoryTx struct {
	base   *memoryData
	staged memoryData
}

func (t *memoryTx) LoadStake(_ context.Context, id string) (*model.Stake, bool, error) {
	if stake, ok := t.staged.Stakes[id]; ok {
		return stake.Clone(), true, nil
	}
	stake, ok := t.base.Stakes[id]
	return stake.Clone(), ok, nil
}

func (t *memoryTx) SaveStake(_ context.Context, stake *model.Stake) error {
	if stake == nil || stake.ID == "" {
		return fmt.Errorf("stake id required")
	}
	t.staged.Stakes[stake.ID] = stake.Clone()
	return nil
}

func (t *memoryTx) LoadStakeStart(_ context.Context, id string) (*model.StakeStartRecord, bool, error) {
	if rec, ok := t.staged.StakeStarts[id]; ok {
		return &rec, true, nil
	}
	if rec, ok := t.base.StakeStarts[id]; ok {
		return &rec, true, nil
	}
	return nil, false, nil
}

func (t *memoryTx) CreateStakeStart(_ context.Context, rec model.StakeStartRecord) error {
	if _, ok := t.base.StakeStarts[rec.StakeID]; ok {
		return fmt.Errorf("stake start %s already exists", rec.StakeID)
	}
	if _, ok := t.staged.StakeStarts[rec.StakeID]; ok {
		return fmt.Errorf("stake start %s already exists", rec.StakeID)
	}
	t.staged.StakeStarts[rec.StakeID] = rec
	return nil
}

func (t *memoryTx) CreateStakeEnd(_ context.Context, rec model.StakeEndRecord) error {
	if _, ok := t.base.StakeEnds[rec.StakeID]; ok {
		return fmt.Errorf("stake end %s already exists", rec.StakeID)
	}
	if _, ok := t.staged.StakeEnds[rec.StakeID]; ok {
		return fmt.Errorf("stake end %s already exists", rec.StakeID)
	}
	t.staged.StakeEnds[rec.StakeID] = rec
	return nil
}

func (t *memoryTx) LoadGlobalState(_ context.Context) (*model.GlobalState, bool, error) {
	if t.staged.GlobalState != nil {
		return t.staged.GlobalState.Clone(), true, nil
	}
	if t.base.GlobalState != nil {
		return t.base.GlobalState.Clone(), true, nil
	}
	return nil, false, nil
}

func (t *memoryTx) SaveGlobalState(_ context.Context, state *model.GlobalState) error {
	if state == nil {
		return fmt.Errorf("global state is nil")
	}
	t.staged.GlobalState = state.Clone()
	return nil
}

func (t *memoryTx) SaveShareRateChange(_ context.Context, change model.ShareRateChange) error {
	if change.ID == "" {
		return fmt.Errorf("share rate change id required")
	}
	t.staged.ShareRateChanges[change.ID] = change
	return nil
}

func (t *memoryTx) SaveCursor(_ context.Context, name string, cursor model.Cursor) error {
	t.staged.Cursors[name] = cursor
	return nil
}

func (t *memoryTx) commit() {
	for id, stake := range t.staged.Stakes {
		t.base.Stakes[id] = stake
	}
	for id, rec := range t.staged.StakeStarts {
		t.base.StakeStarts[id] = rec
	}
	for id, rec := range t.staged.StakeEnds {
		t.base.StakeEnds[id] = rec
	}
	if t.staged.GlobalState != nil {
		t.base.GlobalState = t.staged.GlobalState
	}
	for id, change := range t.staged.ShareRateChanges {
		t.base.ShareRateChanges[id] = change
	}
	for name, cursor := range t.staged.Cursors {
		t.base.Cursors[name] = cursor
	}
}
