package memory

import (
	"time"

	"pharmastock/internal/core/id"
	"pharmastock/internal/domain/catalog"
	"pharmastock/internal/domain/lots"
)

// SeedProduct inserts an active product directly, bypassing staging.
func (s *Store) SeedProduct(locationID id.ID, name string, productType catalog.ProductType) *catalog.Product {
	p := catalog.NewProduct(locationID, catalog.Definition{
		Name:              name,
		Category:          "General",
		ProductType:       productType,
		ConfigurationMode: catalog.ConfigurationPieces,
	}, time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = *p
	return p
}

// PutBatch stores a lot exactly as given, including its entry date. A nil id
// is replaced by a fresh one.
func (s *Store) PutBatch(b lots.Batch) lots.Batch {
	if id.IsNil(b.ID) {
		b.ID = id.New()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[b.ID] = b
	return b
}

// Batch returns a stored lot by id (zero value and false when absent).
func (s *Store) Batch(batchID id.ID) (lots.Batch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[batchID]
	return b, ok
}
