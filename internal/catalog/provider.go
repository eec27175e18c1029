package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Loader reads raw configuration from the configuration store.
type Loader interface {
	LoadCatalog(ctx context.Context) (Data, error)
}

// Provider holds the current snapshot and swaps it atomically on reload.
type Provider struct {
	loader  Loader
	logger  *zap.Logger
	now     func() time.Time
	current atomic.Pointer[Snapshot]

	reloadMu sync.Mutex
	version  int64
}

// NewProvider builds a provider that starts with an empty snapshot.
func NewProvider(loader Loader, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Provider{loader: loader, logger: logger, now: time.Now}
	p.current.Store(Empty())
	return p
}

// NewStaticProvider wraps a fixed snapshot.
func NewStaticProvider(s *Snapshot) *Provider {
	p := &Provider{logger: zap.NewNop(), now: time.Now}
	p.current.Store(s)
	p.version = s.Version()
	return p
}

// Current returns the snapshot in effect. It is never nil.
func (p *Provider) Current() *Snapshot {
	return p.current.Load()
}

// Reload reads the configuration store and swaps in a new snapshot.
// On any failure the previous snapshot stays in effect.
func (p *Provider) Reload(ctx context.Context) (*Snapshot, error) {
	if p.loader == nil {
		return p.Current(), nil
	}
	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()

	data, err := p.loader.LoadCatalog(ctx)
	if err != nil {
		p.logger.Error("catalog load failed; keeping previous snapshot",
			zap.Int64("version", p.Current().Version()), zap.Error(err))
		return p.Current(), fmt.Errorf("load catalog: %w", err)
	}

	snapshot, err := NewSnapshot(p.version+1, p.now(), data)
	if err != nil {
		p.logger.Error("catalog rejected; keeping previous snapshot",
			zap.Int64("version", p.Current().Version()), zap.Error(err))
		return p.Current(), err
	}

	p.version = snapshot.Version()
	p.current.Store(snapshot)
	p.logger.Info("catalog snapshot loaded",
		zap.Int64("version", snapshot.Version()), zap.Any("counts", snapshot.Counts()))
	return snapshot, nil
}
