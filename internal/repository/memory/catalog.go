package memory

import (
	"context"
	"sync"

	"github.com/spec-kit/service-desk/internal/catalog"
)

// CatalogLoader serves configuration data held in memory.
type CatalogLoader struct {
	mu   sync.RWMutex
	data catalog.Data
}

func NewCatalogLoader(data catalog.Data) *CatalogLoader {
	return &CatalogLoader{data: data}
}

var _ catalog.Loader = (*CatalogLoader)(nil)

// Set replaces the data returned by the next load.
func (l *CatalogLoader) Set(data catalog.Data) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data = data
}

func (l *CatalogLoader) LoadCatalog(context.Context) (catalog.Data, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.data, nil
}
