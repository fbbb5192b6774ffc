package data

import (
	"context"
	"sync"
	"time"

	"github.com/tunogya/twin/pkg/model"
)

// MemoryProvider implements Provider with in-memory storage
type MemoryProvider struct {
	mu        sync.RWMutex
	snapshots []model.Snapshot
	series    []model.PriceSeries
}

// NewMemoryProvider creates a new in-memory provider
func NewMemoryProvider(snapshots []model.Snapshot, series []model.PriceSeries) *MemoryProvider {
	return &MemoryProvider{
		snapshots: snapshots,
		series:    series,
	}
}

// AddSnapshots adds or replaces snapshots by instrument id
func (p *MemoryProvider) AddSnapshots(snapshots []model.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range snapshots {
		if i := model.FindSnapshot(p.snapshots, s.ID); i >= 0 {
			p.snapshots[i] = s
			continue
		}
		p.snapshots = append(p.snapshots, s)
	}
}

// AddBars merges daily closes into the stored series
func (p *MemoryProvider) AddBars(bars []model.PriceBar) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var flat []model.PriceBar
	for _, s := range p.series {
		for _, pt := range s.Points {
			flat = append(flat, model.PriceBar{InstrumentID: s.InstrumentID, Date: pt.Date, Close: pt.Close})
		}
	}
	p.series = model.GroupBars(append(flat, bars...))
}

// Snapshots returns a copy of the stored snapshots
func (p *MemoryProvider) Snapshots(ctx context.Context) ([]model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]model.Snapshot, len(p.snapshots))
	copy(out, p.snapshots)
	return out, nil
}

// PriceHistory returns the stored closes dated on or after since
func (p *MemoryProvider) PriceHistory(ctx context.Context, since time.Time) ([]model.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	var result []model.PriceSeries
	for _, s := range p.series {
		pts := s.Since(since)
		if len(pts) == 0 {
			continue
		}
		cp := make([]model.PricePoint, len(pts))
		copy(cp, pts)
		result = append(result, model.PriceSeries{InstrumentID: s.InstrumentID, Points: cp})
	}
	return result, nil
}
