package services

import (
	"context"
	"net/http"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/structura-io/structura/modules/questionnaire/domain/entities/questionnaire"
	"github.com/structura-io/structura/modules/questionnaire/infrastructure/persistence"
	"github.com/structura-io/structura/pkg/composables"
	"github.com/structura-io/structura/pkg/eventbus"
	"github.com/structura-io/structura/pkg/logging"
	"github.com/structura-io/structura/pkg/ordering"
)

type nopTx struct{ pgx.Tx }

func txContext() context.Context {
	return composables.WithTx(context.Background(), nopTx{})
}

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

type memTemplateRepo struct {
	byID map[uuid.UUID]*questionnaire.Template
}

func (r *memTemplateRepo) GetByID(_ context.Context, id uuid.UUID) (*questionnaire.Template, error) {
	template, ok := r.byID[id]
	if !ok || template.IsDeleted {
		return nil, persistence.ErrTemplateNotFound
	}
	clone := *template
	return &clone, nil
}

func (r *memTemplateRepo) LockByID(ctx context.Context, id uuid.UUID) (*questionnaire.Template, error) {
	return r.GetByID(ctx, id)
}

func (r *memTemplateRepo) List(_ context.Context) ([]*questionnaire.Template, error) {
	var out []*questionnaire.Template
	for _, template := range r.byID {
		if template.IsDeleted {
			continue
		}
		clone := *template
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memTemplateRepo) Create(_ context.Context, template *questionnaire.Template) error {
	clone := *template
	r.byID[template.ID] = &clone
	return nil
}

func (r *memTemplateRepo) Rename(_ context.Context, id uuid.UUID, name string) error {
	template, ok := r.byID[id]
	if !ok {
		return persistence.ErrTemplateNotFound
	}
	template.Name = name
	return nil
}

func (r *memTemplateRepo) MarkDeleted(_ context.Context, id uuid.UUID) error {
	template, ok := r.byID[id]
	if !ok {
		return persistence.ErrTemplateNotFound
	}
	template.IsDeleted = true
	return nil
}

type memCategoryRepo struct {
	byID  map[uuid.UUID]*questionnaire.Category
	store *memStore
}

func (r *memCategoryRepo) GetByID(_ context.Context, id uuid.UUID) (*questionnaire.Category, error) {
	category, ok := r.byID[id]
	if !ok || category.IsDeleted {
		return nil, persistence.ErrCategoryNotFound
	}
	clone := *category
	if order := r.store.orderOf(id); order >= 1 {
		clone.Position = ordering.Active(order)
	} else {
		clone.Position = ordering.Deleted()
	}
	return &clone, nil
}

func (r *memCategoryRepo) ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]*questionnaire.Category, error) {
	nodes, err := r.store.Siblings(ctx, templateID)
	if err != nil {
		return nil, err
	}
	out := make([]*questionnaire.Category, 0, len(nodes))
	for _, node := range nodes {
		clone := *r.byID[node.ID]
		clone.Position = node.Position
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memCategoryRepo) Create(_ context.Context, category *questionnaire.Category) error {
	clone := *category
	r.byID[category.ID] = &clone
	r.store.register(category.TemplateID, category.ID)
	return nil
}

func (r *memCategoryRepo) Rename(_ context.Context, id uuid.UUID, name string) error {
	category, ok := r.byID[id]
	if !ok {
		return persistence.ErrCategoryNotFound
	}
	category.Name = name
	return nil
}

func newTestService(t *testing.T) (*QuestionnaireService, *memStore, uuid.UUID) {
	t.Helper()
	store := newMemStore()
	templates := &memTemplateRepo{byID: map[uuid.UUID]*questionnaire.Template{}}
	categories := &memCategoryRepo{byID: map[uuid.UUID]*questionnaire.Category{}, store: store}
	publisher := eventbus.NewEventPublisher(logging.ConsoleLogger(logrus.ErrorLevel))
	return NewQuestionnaireService(templates, categories, store, publisher), store, uuid.New()
}

func TestQuestionnaireService_CategoryOrdering(t *testing.T) {
	svc, store, tenantID := newTestService(t)
	ctx := txContext()

	template, err := svc.CreateTemplate(ctx, tenantID, "Pre-Construction Walkthrough")
	require.NoError(t, err)

	kitchen, err := svc.CreateCategory(ctx, tenantID, CreateCategoryInput{TemplateID: template.ID, Name: "Kitchen"})
	require.NoError(t, err)
	bath, err := svc.CreateCategory(ctx, tenantID, CreateCategoryInput{TemplateID: template.ID, Name: "Bathrooms"})
	require.NoError(t, err)
	exterior, err := svc.CreateCategory(ctx, tenantID, CreateCategoryInput{TemplateID: template.ID, Name: "Exterior"})
	require.NoError(t, err)

	require.Equal(t, 1, store.orderOf(kitchen.ID))
	require.Equal(t, 2, store.orderOf(bath.ID))
	require.Equal(t, 3, store.orderOf(exterior.ID))

	require.NoError(t, svc.MoveCategory(ctx, tenantID, template.ID, exterior.ID, 1))
	require.Equal(t, 1, store.orderOf(exterior.ID))
	require.Equal(t, 2, store.orderOf(kitchen.ID))
	require.Equal(t, 3, store.orderOf(bath.ID))

	require.NoError(t, svc.DeleteCategory(ctx, tenantID, template.ID, kitchen.ID))
	require.Equal(t, 1, store.orderOf(exterior.ID))
	require.Equal(t, 2, store.orderOf(bath.ID))

	t.Run("move_out_of_range", func(t *testing.T) {
		err := svc.MoveCategory(ctx, tenantID, template.ID, bath.ID, 7)
		var svcErr *ServiceError
		require.ErrorAs(t, err, &svcErr)
		require.Equal(t, http.StatusBadRequest, svcErr.Status)
		require.Equal(t, "QN_INVALID_ORDER", svcErr.Code)
	})

	t.Run("foreign_tenant", func(t *testing.T) {
		err := svc.MoveCategory(ctx, uuid.New(), template.ID, bath.ID, 1)
		var svcErr *ServiceError
		require.ErrorAs(t, err, &svcErr)
		require.Equal(t, http.StatusForbidden, svcErr.Status)
	})
}

func TestQuestionnaireService_InsertAtTarget(t *testing.T) {
	svc, store, tenantID := newTestService(t)
	ctx := txContext()

	template, err := svc.CreateTemplate(ctx, tenantID, "Final Walkthrough")
	require.NoError(t, err)

	first, err := svc.CreateCategory(ctx, tenantID, CreateCategoryInput{TemplateID: template.ID, Name: "Interior"})
	require.NoError(t, err)
	second, err := svc.CreateCategory(ctx, tenantID, CreateCategoryInput{TemplateID: template.ID, Name: "Exterior"})
	require.NoError(t, err)

	inserted, err := svc.CreateCategory(ctx, tenantID, CreateCategoryInput{
		TemplateID:  template.ID,
		Name:        "Garage",
		TargetOrder: 2,
	})
	require.NoError(t, err)

	require.Equal(t, 1, store.orderOf(first.ID))
	require.Equal(t, 2, store.orderOf(inserted.ID))
	require.Equal(t, 3, store.orderOf(second.ID))
}
