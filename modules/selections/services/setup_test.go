package services

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/structura-io/structura/modules/selections/domain/entities/selection"
	"github.com/structura-io/structura/modules/selections/infrastructure/persistence"
	"github.com/structura-io/structura/pkg/composables"
	"github.com/structura-io/structura/pkg/eventbus"
	"github.com/structura-io/structura/pkg/logging"
	"github.com/structura-io/structura/pkg/ordering"
)

type nopTx struct{ pgx.Tx }

func txContext() context.Context {
	return composables.WithTx(context.Background(), nopTx{})
}

// memStore keeps one ordering dimension in memory: parent -> id -> order,
// with order 0 meaning the row exists but has not been ordered yet.
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
	byID map[uuid.UUID]*selection.Template
}

func newMemTemplateRepo() *memTemplateRepo {
	return &memTemplateRepo{byID: map[uuid.UUID]*selection.Template{}}
}

func (r *memTemplateRepo) GetByID(_ context.Context, id uuid.UUID) (*selection.Template, error) {
	template, ok := r.byID[id]
	if !ok || template.IsDeleted {
		return nil, persistence.ErrTemplateNotFound
	}
	clone := *template
	return &clone, nil
}

func (r *memTemplateRepo) LockByID(ctx context.Context, id uuid.UUID) (*selection.Template, error) {
	return r.GetByID(ctx, id)
}

func (r *memTemplateRepo) List(_ context.Context) ([]*selection.Template, error) {
	var out []*selection.Template
	for _, template := range r.byID {
		if template.IsDeleted {
			continue
		}
		clone := *template
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memTemplateRepo) Create(_ context.Context, template *selection.Template) error {
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
	byID    map[uuid.UUID]*selection.Category
	initial *memStore
	paint   *memStore
}

func newMemCategoryRepo(initial, paint *memStore) *memCategoryRepo {
	return &memCategoryRepo{byID: map[uuid.UUID]*selection.Category{}, initial: initial, paint: paint}
}

func (r *memCategoryRepo) GetByID(_ context.Context, id uuid.UUID) (*selection.Category, error) {
	category, ok := r.byID[id]
	if !ok || category.IsDeleted {
		return nil, persistence.ErrCategoryNotFound
	}
	clone := *category
	clone.InitialPosition = toPosition(r.initial.orderOf(id))
	clone.PaintPosition = toPosition(r.paint.orderOf(id))
	return &clone, nil
}

func (r *memCategoryRepo) ListByTemplate(ctx context.Context, templateID uuid.UUID, dim selection.Dimension) ([]*selection.Category, error) {
	store := r.initial
	if dim == selection.DimensionPaint {
		store = r.paint
	}
	nodes, err := store.Siblings(ctx, templateID)
	if err != nil {
		return nil, err
	}
	out := make([]*selection.Category, 0, len(nodes))
	for _, node := range nodes {
		category, err := r.GetByID(ctx, node.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, category)
	}
	return out, nil
}

func (r *memCategoryRepo) Create(_ context.Context, category *selection.Category) error {
	clone := *category
	r.byID[category.ID] = &clone
	r.initial.register(category.TemplateID, category.ID)
	r.paint.register(category.TemplateID, category.ID)
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

func (r *memCategoryRepo) MarkDeleted(ctx context.Context, id uuid.UUID) error {
	category, ok := r.byID[id]
	if !ok {
		return persistence.ErrCategoryNotFound
	}
	category.IsDeleted = true
	_ = r.initial.MarkDeleted(ctx, id)
	_ = r.paint.MarkDeleted(ctx, id)
	return nil
}

func toPosition(order int) ordering.Position {
	if order >= 1 {
		return ordering.Active(order)
	}
	return ordering.Deleted()
}

type memQuestionRepo struct {
	byID  map[uuid.UUID]*selection.Question
	store *memStore
}

func newMemQuestionRepo(store *memStore) *memQuestionRepo {
	return &memQuestionRepo{byID: map[uuid.UUID]*selection.Question{}, store: store}
}

func (r *memQuestionRepo) GetByID(_ context.Context, id uuid.UUID) (*selection.Question, error) {
	question, ok := r.byID[id]
	if !ok || question.IsDeleted {
		return nil, persistence.ErrQuestionNotFound
	}
	clone := *question
	clone.Position = toPosition(r.store.orderOf(id))
	return &clone, nil
}

func (r *memQuestionRepo) ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]*selection.Question, error) {
	nodes, err := r.store.Siblings(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	out := make([]*selection.Question, 0, len(nodes))
	for _, node := range nodes {
		clone := *r.byID[node.ID]
		clone.Position = node.Position
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memQuestionRepo) Create(_ context.Context, question *selection.Question) error {
	clone := *question
	r.byID[question.ID] = &clone
	r.store.register(question.CategoryID, question.ID)
	return nil
}

func (r *memQuestionRepo) Rephrase(_ context.Context, id uuid.UUID, prompt string) error {
	question, ok := r.byID[id]
	if !ok {
		return persistence.ErrQuestionNotFound
	}
	question.Prompt = prompt
	return nil
}

func (r *memQuestionRepo) MarkDeletedByCategory(ctx context.Context, categoryID uuid.UUID) error {
	for id, question := range r.byID {
		if question.CategoryID == categoryID {
			question.IsDeleted = true
			_ = r.store.MarkDeleted(ctx, id)
		}
	}
	return nil
}

type fixture struct {
	tenantID      uuid.UUID
	templates     *memTemplateRepo
	categories    *memCategoryRepo
	questions     *memQuestionRepo
	initialStore  *memStore
	paintStore    *memStore
	questionStore *memStore

	templateSvc *TemplateService
	categorySvc *CategoryService
	questionSvc *QuestionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	initialStore := newMemStore()
	paintStore := newMemStore()
	questionStore := newMemStore()
	templates := newMemTemplateRepo()
	categories := newMemCategoryRepo(initialStore, paintStore)
	questions := newMemQuestionRepo(questionStore)
	publisher := eventbus.NewEventPublisher(logging.ConsoleLogger(logrus.ErrorLevel))

	return &fixture{
		tenantID:      uuid.New(),
		templates:     templates,
		categories:    categories,
		questions:     questions,
		initialStore:  initialStore,
		paintStore:    paintStore,
		questionStore: questionStore,
		templateSvc:   NewTemplateService(templates, publisher),
		categorySvc:   NewCategoryService(templates, categories, questions, initialStore, paintStore, publisher),
		questionSvc:   NewQuestionService(categories, questions, questionStore, publisher),
	}
}

func (f *fixture) seedTemplate(t *testing.T) *selection.Template {
	t.Helper()
	template := &selection.Template{
		ID:       uuid.New(),
		TenantID: f.tenantID,
		Name:     "Standard Selections",
	}
	require.NoError(t, f.templates.Create(context.Background(), template))
	return template
}

func (f *fixture) seedCategory(t *testing.T, ctx context.Context, templateID uuid.UUID, name string) *selection.Category {
	t.Helper()
	category, err := f.categorySvc.Create(ctx, f.tenantID, CreateCategoryInput{TemplateID: templateID, Name: name})
	require.NoError(t, err)
	return category
}

func requireServiceError(t *testing.T, err error, status int, code string) *ServiceError {
	t.Helper()
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, status, svcErr.Status)
	require.Equal(t, code, svcErr.Code)
	return svcErr
}
