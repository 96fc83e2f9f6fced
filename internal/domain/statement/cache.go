package statement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/medimagem/faturamento/internal/platform/db"
)

// ErrNotCached is returned when nothing is stored for a period.
var ErrNotCached = errors.New("nothing cached for period")

// KV is a durable key/value store for JSON documents.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

type pgKV struct{ q db.Querier }

// NewPGKV stores values in the app_cache table.
func NewPGKV(q db.Querier) KV { return &pgKV{q: q} }

func (s *pgKV) Get(ctx context.Context, key string) ([]byte, error) {
	var raw []byte
	err := s.q.QueryRow(ctx, `SELECT value FROM app_cache WHERE cache_key = $1`, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("read cache %s: %w", key, err)
	}
	return raw, nil
}

func (s *pgKV) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.q.Exec(ctx, `INSERT INTO app_cache (cache_key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (cache_key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, key, value)
	if err != nil {
		return fmt.Errorf("write cache %s: %w", key, err)
	}
	return nil
}

// MemoryKV is an in-process KV.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotCached
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKV) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// BundleKey is the durable key a period's bundle is stored under.
func BundleKey(period string) string { return "demonstrativos_completos_" + period }

// Cache stores generated bundles by period.
type Cache interface {
	Get(ctx context.Context, period string) (*Bundle, error)
	Put(ctx context.Context, period string, b *Bundle) error
}

type kvCache struct{ kv KV }

func NewCache(kv KV) Cache { return &kvCache{kv: kv} }

func (c *kvCache) Get(ctx context.Context, period string) (*Bundle, error) {
	raw, err := c.kv.Get(ctx, BundleKey(period))
	if err != nil {
		return nil, err
	}
	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("decode cached bundle %s: %w", period, err)
	}
	return &b, nil
}

func (c *kvCache) Put(ctx context.Context, period string, b *Bundle) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode bundle %s: %w", period, err)
	}
	return c.kv.Put(ctx, BundleKey(period), raw)
}

// ProgressKind names a per-client checklist kept for each period.
type ProgressKind string

const (
	ProgressLoaded  ProgressKind = "clientesCarregados"
	ProgressReports ProgressKind = "relatoriosGerados"
	ProgressEmails  ProgressKind = "emailsEnviados"
)

// ParseProgressKind maps the URL segment to a kind.
func ParseProgressKind(s string) (ProgressKind, bool) {
	switch s {
	case "loaded", string(ProgressLoaded):
		return ProgressLoaded, true
	case "reports", string(ProgressReports):
		return ProgressReports, true
	case "emails", string(ProgressEmails):
		return ProgressEmails, true
	}
	return "", false
}

func progressKey(kind ProgressKind, period string) string { return string(kind) + "_" + period }

// Progress lists the clients done for each kind.
type Progress struct {
	Period  string   `json:"periodo"`
	Loaded  []string `json:"clientes_carregados"`
	Reports []string `json:"relatorios_gerados"`
	Emails  []string `json:"emails_enviados"`
}

// ProgressStore keeps the per-period checklists in a KV.
type ProgressStore struct {
	kv KV
	mu sync.Mutex
}

func NewProgressStore(kv KV) *ProgressStore {
	return &ProgressStore{kv: kv}
}

func (p *ProgressStore) Get(ctx context.Context, period string) (*Progress, error) {
	out := &Progress{Period: period}
	for _, f := range []struct {
		kind ProgressKind
		dst  *[]string
	}{
		{ProgressLoaded, &out.Loaded},
		{ProgressReports, &out.Reports},
		{ProgressEmails, &out.Emails},
	} {
		names, err := p.list(ctx, f.kind, period)
		if err != nil {
			return nil, err
		}
		*f.dst = names
	}
	return out, nil
}

// Mark adds client to the checklist. Marking twice is a no-op.
func (p *ProgressStore) Mark(ctx context.Context, kind ProgressKind, period, client string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	names, err := p.list(ctx, kind, period)
	if err != nil {
		return err
	}
	for _, n := range names {
		if n == client {
			return nil
		}
	}
	names = append(names, client)
	sort.Strings(names)
	raw, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return p.kv.Put(ctx, progressKey(kind, period), raw)
}

func (p *ProgressStore) list(ctx context.Context, kind ProgressKind, period string) ([]string, error) {
	raw, err := p.kv.Get(ctx, progressKey(kind, period))
	if errors.Is(err, ErrNotCached) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("decode %s: %w", progressKey(kind, period), err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}
