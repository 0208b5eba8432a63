package inventory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// memStore is an in-memory store whose fakeScope rolls back on error
type memStore struct {
	mu          sync.Mutex
	batches     map[uuid.UUID]inventory.Batch
	allocations []inventory.Allocation
	movements   []inventory.InventoryMovement
	claims      map[uuid.UUID]bool
	// locked lists the products in the order their batches were locked
	locked []uuid.UUID

	// staleLedger is returned once by FindByOrderForUpdate instead of the
	// current rows, as a reader racing a committed reversal would see them
	staleLedger []inventory.Allocation
	// conflicts makes the next N conditional decrements fail as if a
	// concurrent writer had changed the batch
	conflicts int
	// failCreateAllocations simulates a persistence failure on ledger insert
	failCreateAllocations error
}

func newMemStore() *memStore {
	return &memStore{
		batches: make(map[uuid.UUID]inventory.Batch),
		claims:  make(map[uuid.UUID]bool),
	}
}

func (m *memStore) put(b inventory.Batch) {
	m.batches[b.ID] = b
}

func (m *memStore) qty(id uuid.UUID) int64 {
	return m.batches[id].Quantity
}

type memSnapshot struct {
	batches     map[uuid.UUID]inventory.Batch
	allocations []inventory.Allocation
	movements   []inventory.InventoryMovement
	claims      map[uuid.UUID]bool
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		batches:     make(map[uuid.UUID]inventory.Batch, len(m.batches)),
		allocations: append([]inventory.Allocation(nil), m.allocations...),
		movements:   append([]inventory.InventoryMovement(nil), m.movements...),
		claims:      make(map[uuid.UUID]bool, len(m.claims)),
	}
	for k, v := range m.batches {
		s.batches[k] = v
	}
	for k, v := range m.claims {
		s.claims[k] = v
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.batches = s.batches
	m.allocations = s.allocations
	m.movements = s.movements
	m.claims = s.claims
}

type fakeScope struct {
	store      *memStore
	executions int
}

func (f *fakeScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.executions++
	snap := f.store.snapshot()
	if err := fn(f); err != nil {
		f.store.restore(snap)
		return err
	}
	return nil
}

func (f *fakeScope) BatchRepo() inventory.BatchRepository {
	return &fakeBatchRepo{store: f.store}
}

func (f *fakeScope) AllocationRepo() inventory.AllocationRepository {
	return &fakeAllocationRepo{store: f.store}
}

func (f *fakeScope) MovementRepo() inventory.MovementRepository {
	return &fakeMovementRepo{store: f.store}
}

type fakeBatchRepo struct {
	store *memStore
}

func (r *fakeBatchRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.Batch, error) {
	b, ok := r.store.batches[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &b, nil
}

func (r *fakeBatchRepo) FindByProductAndWarehouse(_ context.Context, productID, warehouseID uuid.UUID) ([]inventory.Batch, error) {
	var out []inventory.Batch
	for _, b := range r.store.batches {
		if b.ProductID == productID && b.WarehouseID == warehouseID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.Before(out[j].ReceivedAt) })
	return out, nil
}

func (r *fakeBatchRepo) FindAll(ctx context.Context, filter inventory.BatchFilter) ([]inventory.Batch, int64, error) {
	var out []inventory.Batch
	for _, b := range r.store.batches {
		if filter.ProductID != nil && b.ProductID != *filter.ProductID {
			continue
		}
		if filter.WarehouseID != nil && b.WarehouseID != *filter.WarehouseID {
			continue
		}
		if filter.AvailableOnly && b.Quantity <= 0 {
			continue
		}
		out = append(out, b)
	}
	return out, int64(len(out)), nil
}

func (r *fakeBatchRepo) FindAvailableForUpdate(ctx context.Context, productID, warehouseID uuid.UUID) ([]inventory.Batch, error) {
	r.store.locked = append(r.store.locked, productID)
	all, _ := r.FindByProductAndWarehouse(ctx, productID, warehouseID)
	var out []inventory.Batch
	for _, b := range all {
		if b.Quantity > 0 {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBatchRepo) FindByIDsForUpdate(_ context.Context, ids []uuid.UUID) ([]inventory.Batch, error) {
	var out []inventory.Batch
	for _, id := range ids {
		if b, ok := r.store.batches[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBatchRepo) FindMergeCandidate(_ context.Context, poLineID uuid.UUID) (*inventory.Batch, error) {
	var latest *inventory.Batch
	for _, b := range r.store.batches {
		if b.PurchaseOrderLineID != nil && *b.PurchaseOrderLineID == poLineID {
			if latest == nil || b.ReceivedAt.After(latest.ReceivedAt) {
				bb := b
				latest = &bb
			}
		}
	}
	if latest == nil {
		return nil, shared.ErrNotFound
	}
	return latest, nil
}

func (r *fakeBatchRepo) Create(_ context.Context, batch *inventory.Batch) error {
	if _, ok := r.store.batches[batch.ID]; ok {
		return shared.ErrAlreadyExists
	}
	r.store.batches[batch.ID] = *batch
	return nil
}

func (r *fakeBatchRepo) DecrementQuantity(_ context.Context, id uuid.UUID, quantity int64) error {
	if r.store.conflicts > 0 {
		r.store.conflicts--
		return shared.ErrConcurrencyConflict
	}
	b, ok := r.store.batches[id]
	if !ok || b.Quantity < quantity {
		return shared.ErrConcurrencyConflict
	}
	b.Quantity -= quantity
	b.Version++
	r.store.batches[id] = b
	return nil
}

func (r *fakeBatchRepo) IncrementQuantity(_ context.Context, id uuid.UUID, quantity int64) error {
	b, ok := r.store.batches[id]
	if !ok {
		return shared.ErrNotFound
	}
	if b.Quantity+quantity > b.OriginalQuantity {
		return shared.ErrInvalidState
	}
	b.Quantity += quantity
	b.Version++
	r.store.batches[id] = b
	return nil
}

func (r *fakeBatchRepo) Replenish(_ context.Context, id uuid.UUID, quantity int64) error {
	b, ok := r.store.batches[id]
	if !ok {
		return shared.ErrNotFound
	}
	b.Quantity += quantity
	b.OriginalQuantity += quantity
	r.store.batches[id] = b
	return nil
}

func (r *fakeBatchRepo) SumAvailable(_ context.Context, productID, warehouseID uuid.UUID) (int64, error) {
	var total int64
	for _, b := range r.store.batches {
		if b.ProductID == productID && b.WarehouseID == warehouseID {
			total += b.Quantity
		}
	}
	return total, nil
}

type fakeAllocationRepo struct {
	store *memStore
}

func (r *fakeAllocationRepo) CreateBatch(_ context.Context, allocations []inventory.Allocation) error {
	if r.store.failCreateAllocations != nil {
		return r.store.failCreateAllocations
	}
	r.store.allocations = append(r.store.allocations, allocations...)
	return nil
}

func (r *fakeAllocationRepo) FindByOrder(_ context.Context, orderID uuid.UUID) ([]inventory.Allocation, error) {
	var out []inventory.Allocation
	for _, a := range r.store.allocations {
		if a.OrderID == orderID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAllocationRepo) FindByOrderForUpdate(ctx context.Context, orderID uuid.UUID) ([]inventory.Allocation, error) {
	if stale := r.store.staleLedger; stale != nil {
		r.store.staleLedger = nil
		return stale, nil
	}
	return r.FindByOrder(ctx, orderID)
}

func (r *fakeAllocationRepo) ClaimOrder(_ context.Context, orderID uuid.UUID) (bool, error) {
	if r.store.claims[orderID] {
		return false, nil
	}
	r.store.claims[orderID] = true
	return true, nil
}

func (r *fakeAllocationRepo) ReleaseOrder(_ context.Context, orderID uuid.UUID) (bool, error) {
	held := r.store.claims[orderID]
	delete(r.store.claims, orderID)
	return held, nil
}

func (r *fakeAllocationRepo) FindByOrderLine(_ context.Context, orderLineID uuid.UUID) ([]inventory.Allocation, error) {
	var out []inventory.Allocation
	for _, a := range r.store.allocations {
		if a.OrderLineID == orderLineID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAllocationRepo) FindByBatch(_ context.Context, batchID uuid.UUID) ([]inventory.Allocation, error) {
	var out []inventory.Allocation
	for _, a := range r.store.allocations {
		if a.BatchID == batchID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAllocationRepo) ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	rows, _ := r.FindByOrder(ctx, orderID)
	return len(rows) > 0, nil
}

func (r *fakeAllocationRepo) SumByBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	rows, _ := r.FindByBatch(ctx, batchID)
	return inventory.SumAllocated(rows), nil
}

func (r *fakeAllocationRepo) DeleteByOrder(_ context.Context, orderID uuid.UUID) (int64, error) {
	kept := r.store.allocations[:0]
	var deleted int64
	for _, a := range r.store.allocations {
		if a.OrderID == orderID {
			deleted++
			continue
		}
		kept = append(kept, a)
	}
	r.store.allocations = kept
	return deleted, nil
}

type fakeMovementRepo struct {
	store *memStore
}

func (r *fakeMovementRepo) Create(_ context.Context, movement *inventory.InventoryMovement) error {
	r.store.movements = append(r.store.movements, *movement)
	return nil
}

func (r *fakeMovementRepo) FindByPurchaseOrder(_ context.Context, purchaseOrderID uuid.UUID) ([]inventory.InventoryMovement, error) {
	var out []inventory.InventoryMovement
	for _, m := range r.store.movements {
		if m.PurchaseOrderID != nil && *m.PurchaseOrderID == purchaseOrderID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMovementRepo) FindByProductAndWarehouse(_ context.Context, productID, warehouseID uuid.UUID, _ shared.Filter) ([]inventory.InventoryMovement, int64, error) {
	var out []inventory.InventoryMovement
	for _, m := range r.store.movements {
		if m.ProductID == productID && m.WarehouseID == warehouseID {
			out = append(out, m)
		}
	}
	return out, int64(len(out)), nil
}

type recordingPublisher struct {
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

type memIdempotencyStore struct {
	keys map[string]bool
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{keys: make(map[string]bool)}
}

func (s *memIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	return s.keys[key], nil
}

func (s *memIdempotencyStore) Forget(_ context.Context, key string) error {
	delete(s.keys, key)
	return nil
}

func (s *memIdempotencyStore) Close() error { return nil }
