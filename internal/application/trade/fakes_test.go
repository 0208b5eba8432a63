package trade

import (
	"context"
	"sync"
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/trade"
	"github.com/google/uuid"
)

// memStore holds purchase orders, batches and movements; fakeScope rolls the
// whole store back when the transaction function fails
type memStore struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]trade.PurchaseOrder
	batches   map[uuid.UUID]inventory.Batch
	movements []inventory.InventoryMovement
	writes    int
}

func newMemStore() *memStore {
	return &memStore{
		orders:  make(map[uuid.UUID]trade.PurchaseOrder),
		batches: make(map[uuid.UUID]inventory.Batch),
	}
}

func cloneOrder(o trade.PurchaseOrder) trade.PurchaseOrder {
	o.Lines = append([]trade.PurchaseOrderLine(nil), o.Lines...)
	o.ClearDomainEvents()
	return o
}

type memSnapshot struct {
	orders    map[uuid.UUID]trade.PurchaseOrder
	batches   map[uuid.UUID]inventory.Batch
	movements []inventory.InventoryMovement
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		orders:    make(map[uuid.UUID]trade.PurchaseOrder, len(m.orders)),
		batches:   make(map[uuid.UUID]inventory.Batch, len(m.batches)),
		movements: append([]inventory.InventoryMovement(nil), m.movements...),
	}
	for k, v := range m.orders {
		s.orders[k] = cloneOrder(v)
	}
	for k, v := range m.batches {
		s.batches[k] = v
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.orders = s.orders
	m.batches = s.batches
	m.movements = s.movements
}

func (m *memStore) batchesForLine(lineID uuid.UUID) []inventory.Batch {
	var out []inventory.Batch
	for _, b := range m.batches {
		if b.PurchaseOrderLineID != nil && *b.PurchaseOrderLineID == lineID {
			out = append(out, b)
		}
	}
	return out
}

type fakeScope struct {
	store *memStore
}

func (f *fakeScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	snap := f.store.snapshot()
	if err := fn(f); err != nil {
		f.store.restore(snap)
		return err
	}
	return nil
}

func (f *fakeScope) PurchaseOrderRepo() trade.PurchaseOrderRepository {
	return &fakeOrderRepo{store: f.store}
}

func (f *fakeScope) BatchRepo() inventory.BatchRepository {
	return &fakeBatchRepo{store: f.store}
}

func (f *fakeScope) MovementRepo() inventory.MovementRepository {
	return &fakeMovementRepo{store: f.store}
}

type fakeOrderRepo struct {
	store *memStore
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*trade.PurchaseOrder, error) {
	o, ok := r.store.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	c := cloneOrder(o)
	return &c, nil
}

func (r *fakeOrderRepo) FindByLineIDForUpdate(_ context.Context, lineID uuid.UUID) (*trade.PurchaseOrder, error) {
	for _, o := range r.store.orders {
		for _, l := range o.Lines {
			if l.ID == lineID {
				c := cloneOrder(o)
				return &c, nil
			}
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeOrderRepo) FindAll(_ context.Context, filter trade.PurchaseOrderFilter) ([]trade.PurchaseOrder, int64, error) {
	var out []trade.PurchaseOrder
	for _, o := range r.store.orders {
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		if filter.WarehouseID != nil && o.WarehouseID != *filter.WarehouseID {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepo) ExistsByOrderNumber(_ context.Context, orderNumber string) (bool, error) {
	for _, o := range r.store.orders {
		if o.OrderNumber == orderNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeOrderRepo) Create(_ context.Context, order *trade.PurchaseOrder) error {
	r.store.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (r *fakeOrderRepo) SaveLine(_ context.Context, line *trade.PurchaseOrderLine) error {
	o, ok := r.store.orders[line.PurchaseOrderID]
	if !ok {
		return shared.ErrNotFound
	}
	o = cloneOrder(o)
	for i := range o.Lines {
		if o.Lines[i].ID == line.ID {
			o.Lines[i] = *line
		}
	}
	r.store.orders[o.ID] = o
	r.store.writes++
	return nil
}

func (r *fakeOrderRepo) SaveStatus(_ context.Context, order *trade.PurchaseOrder) error {
	o, ok := r.store.orders[order.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if o.Version != order.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	o = cloneOrder(o)
	o.Status = order.Status
	o.ReceivedAt = order.ReceivedAt
	o.Version = order.Version
	r.store.orders[o.ID] = o
	r.store.writes++
	return nil
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
	return out, nil
}

func (r *fakeBatchRepo) FindAll(ctx context.Context, _ inventory.BatchFilter) ([]inventory.Batch, int64, error) {
	var out []inventory.Batch
	for _, b := range r.store.batches {
		out = append(out, b)
	}
	return out, int64(len(out)), nil
}

func (r *fakeBatchRepo) FindAvailableForUpdate(ctx context.Context, productID, warehouseID uuid.UUID) ([]inventory.Batch, error) {
	return r.FindByProductAndWarehouse(ctx, productID, warehouseID)
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
	for _, b := range r.store.batchesForLine(poLineID) {
		if latest == nil || b.ReceivedAt.After(latest.ReceivedAt) {
			bb := b
			latest = &bb
		}
	}
	if latest == nil {
		return nil, shared.ErrNotFound
	}
	return latest, nil
}

func (r *fakeBatchRepo) Create(_ context.Context, batch *inventory.Batch) error {
	r.store.batches[batch.ID] = *batch
	r.store.writes++
	return nil
}

func (r *fakeBatchRepo) DecrementQuantity(_ context.Context, id uuid.UUID, quantity int64) error {
	b, ok := r.store.batches[id]
	if !ok || b.Quantity < quantity {
		return shared.ErrConcurrencyConflict
	}
	b.Quantity -= quantity
	r.store.batches[id] = b
	return nil
}

func (r *fakeBatchRepo) IncrementQuantity(_ context.Context, id uuid.UUID, quantity int64) error {
	b, ok := r.store.batches[id]
	if !ok {
		return shared.ErrNotFound
	}
	b.Quantity += quantity
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
	r.store.writes++
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

type fakeMovementRepo struct {
	store *memStore
}

func (r *fakeMovementRepo) Create(_ context.Context, movement *inventory.InventoryMovement) error {
	r.store.movements = append(r.store.movements, *movement)
	r.store.writes++
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

type fakeStageRepo struct {
	stages  []trade.OrderStage
	saveErr error
}

func (r *fakeStageRepo) FindAll(_ context.Context) ([]trade.OrderStage, error) {
	return append([]trade.OrderStage(nil), r.stages...), nil
}

func (r *fakeStageRepo) ReplaceAll(_ context.Context, stages []trade.OrderStage) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.stages = append([]trade.OrderStage(nil), stages...)
	return nil
}

type recordingPublisher struct {
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
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
