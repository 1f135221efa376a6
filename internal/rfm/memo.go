package rfm

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"ecommerce-dashboard/internal/dataset"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	fieldSep  = 0x1f
	recordSep = 0x1e
)

// Fingerprint hashes the fields Compute reads. Equal inputs, in the same
// order, always produce the same key.
func Fingerprint(orders []dataset.Order, items []dataset.OrderItem) uint64 {
	d := xxhash.New()
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], uint64(len(orders)))
	d.Write(buf[:])
	for _, o := range orders {
		d.WriteString(o.OrderID)
		d.Write([]byte{fieldSep})
		d.WriteString(o.CustomerID)
		d.Write([]byte{fieldSep})
		binary.LittleEndian.PutUint64(buf[:], uint64(o.PurchaseTimestamp.UnixNano()))
		d.Write(buf[:])
		d.Write([]byte{recordSep})
	}

	binary.LittleEndian.PutUint64(buf[:], uint64(len(items)))
	d.Write(buf[:])
	for _, it := range items {
		d.WriteString(it.OrderID)
		d.Write([]byte{fieldSep})
		d.WriteString(it.Price.String())
		d.Write([]byte{recordSep})
	}
	return d.Sum64()
}

// Store is a shared result tier behind the in-process cache, e.g. Redis.
type Store interface {
	Get(ctx context.Context, key uint64) (*Result, bool, error)
	Set(ctx context.Context, key uint64, result *Result) error
}

type MemoStats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

// Memo memoizes Compute on the input fingerprint. Failed computations are
// not cached. Shared-tier failures are logged and never fail the call.
type Memo struct {
	local  *lru.Cache[uint64, *Result]
	shared Store
	logger *zap.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
}

type MemoOption func(*Memo)

func WithStore(s Store) MemoOption {
	return func(m *Memo) {
		m.shared = s
	}
}

func WithLogger(logger *zap.Logger) MemoOption {
	return func(m *Memo) {
		m.logger = logger
	}
}

func NewMemo(size int, opts ...MemoOption) (*Memo, error) {
	local, err := lru.New[uint64, *Result](size)
	if err != nil {
		return nil, fmt.Errorf("create rfm cache: %w", err)
	}
	m := &Memo{local: local, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Memo) Compute(ctx context.Context, orders []dataset.Order, items []dataset.OrderItem) (*Result, error) {
	key := Fingerprint(orders, items)
	if r, ok := m.local.Get(key); ok {
		m.hits.Add(1)
		return r, nil
	}

	if m.shared != nil {
		r, ok, err := m.shared.Get(ctx, key)
		if err != nil {
			m.logger.Warn("rfm shared cache read failed", zap.Uint64("key", key), zap.Error(err))
		} else if ok {
			m.hits.Add(1)
			m.local.Add(key, r)
			return r, nil
		}
	}

	m.misses.Add(1)
	r, err := Compute(orders, items)
	if err != nil {
		return nil, err
	}
	m.local.Add(key, r)

	if m.shared != nil {
		if err := m.shared.Set(ctx, key, r); err != nil {
			m.logger.Warn("rfm shared cache write failed", zap.Uint64("key", key), zap.Error(err))
		}
	}
	if ce := m.logger.Check(zap.DebugLevel, "rfm computed"); ce != nil {
		ce.Write(
			zap.Uint64("key", key),
			zap.Int("customers", len(r.Customers)),
			zap.String("monetary_total", totalMonetary(r).String()),
		)
	}
	return r, nil
}

func (m *Memo) Stats() MemoStats {
	return MemoStats{Hits: m.hits.Load(), Misses: m.misses.Load()}
}

// Purge drops every locally cached result.
func (m *Memo) Purge() {
	m.local.Purge()
}

func totalMonetary(r *Result) decimal.Decimal {
	total := decimal.Zero
	for _, c := range r.Customers {
		total = total.Add(c.Monetary)
	}
	return total
}
