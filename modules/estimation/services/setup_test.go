package services

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/structura-io/structura/modules/estimation/domain/entities/estimate"
	"github.com/structura-io/structura/modules/estimation/domain/pricing"
	"github.com/structura-io/structura/modules/estimation/infrastructure/persistence"
	"github.com/structura-io/structura/pkg/composables"
	"github.com/structura-io/structura/pkg/eventbus"
	"github.com/structura-io/structura/pkg/logging"
	"github.com/structura-io/structura/pkg/ordering"
)

// nopTx satisfies pgx.Tx without a database. Placing it on the context makes
// every service call join it instead of opening a real transaction, so the
// in-memory repositories below see all writes.
type nopTx struct{ pgx.Tx }

func txContext() context.Context {
	return composables.WithTx(context.Background(), nopTx{})
}

func serialization() *pgconn.PgError {
	return &pgconn.PgError{Code: "40001"}
}

// memStore mirrors the sibling tables: parent -> id -> order, with order 0
// meaning the row exists but has not been ordered yet.
type memStore struct {
	parents map[uuid.UUID]map[uuid.UUID]int
}

func newMemStore() *memStore {
	return &memStore{parents: map[uuid.UUID]map[uuid.UUID]int{}}
}

func (m *memStore) register(parentID, id uuid.UUID) {
	if m.parents[parentID] == nil {
		m.parents[parentID] = map[uuid.UUID]int{}
	}
	m.parents[parentID][id] = 0
}

func (m *memStore) orderOf(id uuid.UUID) int {
	for _, children := range m.parents {
		if order, ok := children[id]; ok {
			return order
		}
	}
	return 0
}

func (m *memStore) Siblings(_ context.Context, parentID uuid.UUID) ([]ordering.Node, error) {
	children := m.parents[parentID]
	nodes := make([]ordering.Node, 0, len(children))
	for id, order := range children {
		if order < 1 {
			continue
		}
		nodes = append(nodes, ordering.Node{ID: id, Position: ordering.Active(order)})
	}
	sort.Slice(nodes, func(i, j int) bool {
		a, _ := nodes[i].Position.Order()
		b, _ := nodes[j].Position.Order()
		return a < b
	})
	return nodes, nil
}

func (m *memStore) ShiftRange(_ context.Context, parentID uuid.UUID, lo, hi, delta int) error {
	for id, order := range m.parents[parentID] {
		if order >= lo && order <= hi {
			m.parents[parentID][id] = order + delta
		}
	}
	return nil
}

func (m *memStore) SetOrder(_ context.Context, id uuid.UUID, order int) error {
	for _, children := range m.parents {
		if _, ok := children[id]; ok {
			children[id] = order
			return nil
		}
	}
	return nil
}

func (m *memStore) MarkDeleted(_ context.Context, id uuid.UUID) error {
	for _, children := range m.parents {
		delete(children, id)
	}
	return nil
}

type memSheetRepo struct {
	byID map[uuid.UUID]*estimate.Sheet
	// failLocks injects serialization failures into the next N LockByID calls.
	failLocks int
	lockCalls int
}

func newMemSheetRepo() *memSheetRepo {
	return &memSheetRepo{byID: map[uuid.UUID]*estimate.Sheet{}}
}

func (r *memSheetRepo) GetByID(_ context.Context, id uuid.UUID) (*estimate.Sheet, error) {
	sheet, ok := r.byID[id]
	if !ok || sheet.IsDeleted {
		return nil, persistence.ErrSheetNotFound
	}
	clone := *sheet
	return &clone, nil
}

func (r *memSheetRepo) LockByID(ctx context.Context, id uuid.UUID) (*estimate.Sheet, error) {
	r.lockCalls++
	if r.failLocks > 0 {
		r.failLocks--
		return nil, serialization()
	}
	return r.GetByID(ctx, id)
}

func (r *memSheetRepo) List(_ context.Context, kind estimate.SheetKind) ([]*estimate.Sheet, error) {
	var out []*estimate.Sheet
	for _, sheet := range r.byID {
		if sheet.IsDeleted || sheet.Kind != kind {
			continue
		}
		clone := *sheet
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memSheetRepo) Create(_ context.Context, sheet *estimate.Sheet) error {
	clone := *sheet
	r.byID[sheet.ID] = &clone
	return nil
}

func (r *memSheetRepo) Rename(_ context.Context, id uuid.UUID, name string) error {
	sheet, ok := r.byID[id]
	if !ok {
		return persistence.ErrSheetNotFound
	}
	sheet.Name = name
	return nil
}

func (r *memSheetRepo) SetProfitPolicy(_ context.Context, id uuid.UUID, policy pricing.ProfitPolicy) error {
	sheet, ok := r.byID[id]
	if !ok {
		return persistence.ErrSheetNotFound
	}
	sheet.ProfitPolicy = policy
	return nil
}

func (r *memSheetRepo) MarkDeleted(_ context.Context, id uuid.UUID) error {
	sheet, ok := r.byID[id]
	if !ok {
		return persistence.ErrSheetNotFound
	}
	sheet.IsDeleted = true
	return nil
}

type memHeaderRepo struct {
	byID  map[uuid.UUID]*estimate.Header
	store *memStore
}

func newMemHeaderRepo(store *memStore) *memHeaderRepo {
	return &memHeaderRepo{byID: map[uuid.UUID]*estimate.Header{}, store: store}
}

func (r *memHeaderRepo) GetByID(_ context.Context, id uuid.UUID) (*estimate.Header, error) {
	header, ok := r.byID[id]
	if !ok || header.IsDeleted {
		return nil, persistence.ErrHeaderNotFound
	}
	clone := *header
	clone.Position = r.position(id)
	return &clone, nil
}

func (r *memHeaderRepo) ListBySheet(ctx context.Context, sheetID uuid.UUID) ([]*estimate.Header, error) {
	nodes, err := r.store.Siblings(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	out := make([]*estimate.Header, 0, len(nodes))
	for _, node := range nodes {
		clone := *r.byID[node.ID]
		clone.Position = node.Position
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memHeaderRepo) Create(_ context.Context, header *estimate.Header) error {
	clone := *header
	r.byID[header.ID] = &clone
	r.store.register(header.SheetID, header.ID)
	return nil
}

func (r *memHeaderRepo) Rename(_ context.Context, id uuid.UUID, name string) error {
	header, ok := r.byID[id]
	if !ok {
		return persistence.ErrHeaderNotFound
	}
	header.Name = name
	return nil
}

func (r *memHeaderRepo) position(id uuid.UUID) ordering.Position {
	if order := r.store.orderOf(id); order >= 1 {
		return ordering.Active(order)
	}
	return ordering.Deleted()
}

type memItemRepo struct {
	byID    map[uuid.UUID]*estimate.LineItem
	store   *memStore
	headers *memHeaderRepo
}

func newMemItemRepo(store *memStore, headers *memHeaderRepo) *memItemRepo {
	return &memItemRepo{byID: map[uuid.UUID]*estimate.LineItem{}, store: store, headers: headers}
}

func (r *memItemRepo) GetByID(_ context.Context, id uuid.UUID) (*estimate.LineItem, error) {
	item, ok := r.byID[id]
	if !ok || item.IsDeleted {
		return nil, persistence.ErrLineItemNotFound
	}
	clone := *item
	if order := r.store.orderOf(id); order >= 1 {
		clone.Position = ordering.Active(order)
	} else {
		clone.Position = ordering.Deleted()
	}
	return &clone, nil
}

func (r *memItemRepo) ListByHeader(ctx context.Context, headerID uuid.UUID) ([]*estimate.LineItem, error) {
	nodes, err := r.store.Siblings(ctx, headerID)
	if err != nil {
		return nil, err
	}
	out := make([]*estimate.LineItem, 0, len(nodes))
	for _, node := range nodes {
		clone := *r.byID[node.ID]
		clone.Position = node.Position
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memItemRepo) ListBySheet(ctx context.Context, sheetID uuid.UUID) ([]*estimate.LineItem, error) {
	var out []*estimate.LineItem
	for _, item := range r.byID {
		if item.IsDeleted {
			continue
		}
		header, ok := r.headers.byID[item.HeaderID]
		if !ok || header.SheetID != sheetID {
			continue
		}
		clone := *item
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memItemRepo) Create(_ context.Context, item *estimate.LineItem) error {
	clone := *item
	r.byID[item.ID] = &clone
	r.store.register(item.HeaderID, item.ID)
	return nil
}

func (r *memItemRepo) Update(_ context.Context, item *estimate.LineItem) error {
	existing, ok := r.byID[item.ID]
	if !ok {
		return persistence.ErrLineItemNotFound
	}
	clone := *item
	clone.CreatedAt = existing.CreatedAt
	r.byID[item.ID] = &clone
	return nil
}

func (r *memItemRepo) UpdateContractPrice(_ context.Context, id uuid.UUID, price decimal.Decimal) error {
	item, ok := r.byID[id]
	if !ok {
		return persistence.ErrLineItemNotFound
	}
	item.ContractPrice = price
	return nil
}

func (r *memItemRepo) MarkDeletedByHeader(_ context.Context, headerID uuid.UUID) error {
	for id, item := range r.byID {
		if item.HeaderID == headerID {
			item.IsDeleted = true
			_ = r.store.MarkDeleted(context.Background(), id)
		}
	}
	return nil
}

// fixture wires a full in-memory estimation stack around shared stores.
type fixture struct {
	tenantID    uuid.UUID
	sheets      *memSheetRepo
	headers     *memHeaderRepo
	items       *memItemRepo
	headerStore *memStore
	itemStore   *memStore

	sheetSvc  *SheetService
	headerSvc *HeaderService
	itemSvc   *LineItemService
	importSvc *ImportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	headerStore := newMemStore()
	itemStore := newMemStore()
	sheets := newMemSheetRepo()
	headers := newMemHeaderRepo(headerStore)
	items := newMemItemRepo(itemStore, headers)
	publisher := eventbus.NewEventPublisher(logging.ConsoleLogger(logrus.ErrorLevel))

	return &fixture{
		tenantID:    uuid.New(),
		sheets:      sheets,
		headers:     headers,
		items:       items,
		headerStore: headerStore,
		itemStore:   itemStore,
		sheetSvc:    NewSheetService(sheets, items, publisher),
		headerSvc:   NewHeaderService(sheets, headers, items, headerStore, publisher),
		itemSvc:     NewLineItemService(sheets, headers, items, itemStore, publisher),
		importSvc:   NewImportService(sheets, headers, items, headerStore, itemStore, publisher),
	}
}

func (f *fixture) seedSheet(t *testing.T, policy pricing.ProfitPolicy) *estimate.Sheet {
	t.Helper()
	sheet := &estimate.Sheet{
		ID:           uuid.New(),
		TenantID:     f.tenantID,
		Kind:         estimate.KindTemplate,
		Name:         "Base Home",
		ProfitPolicy: policy,
	}
	require.NoError(t, f.sheets.Create(context.Background(), sheet))
	return sheet
}

func (f *fixture) seedHeader(t *testing.T, ctx context.Context, sheetID uuid.UUID, name string) *estimate.Header {
	t.Helper()
	header, err := f.headerSvc.Create(ctx, f.tenantID, CreateHeaderInput{SheetID: sheetID, Name: name})
	require.NoError(t, err)
	return header
}

func (f *fixture) seedItem(t *testing.T, ctx context.Context, headerID uuid.UUID, name string, unitCost, qty, profit string) *estimate.LineItem {
	t.Helper()
	item, err := f.itemSvc.Create(ctx, f.tenantID, CreateLineItemInput{
		HeaderID: headerID,
		LineItemInput: LineItemInput{
			Name:          name,
			UnitCost:      decimal.RequireFromString(unitCost),
			Quantity:      decimal.RequireFromString(qty),
			DesiredProfit: decimal.RequireFromString(profit),
		},
	})
	require.NoError(t, err)
	return item
}

func requireServiceError(t *testing.T, err error, status int, code string) *ServiceError {
	t.Helper()
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, status, svcErr.Status)
	require.Equal(t, code, svcErr.Code)
	return svcErr
}
