package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/structura-io/structura/modules/selections/domain/entities/selection"
	"github.com/structura-io/structura/modules/selections/services"
	"github.com/structura-io/structura/pkg/application"
	"github.com/structura-io/structura/pkg/httpapi"
	"github.com/structura-io/structura/pkg/middleware"
)

type createTemplateRequest struct {
	Name string `json:"name" validate:"required"`
}

type renameRequest struct {
	Name string `json:"name" validate:"required"`
}

type createCategoryRequest struct {
	Name string `json:"name" validate:"required"`
	// Omitted or zero appends in the initial ordering.
	TargetOrder int `json:"target_order" validate:"gte=0"`
}

type moveCategoryRequest struct {
	Dimension   string `json:"dimension" validate:"required"`
	TargetOrder int    `json:"target_order" validate:"required,gte=1"`
}

type createQuestionRequest struct {
	Prompt      string `json:"prompt" validate:"required"`
	TargetOrder int    `json:"target_order" validate:"gte=0"`
}

type rephraseRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

type moveRequest struct {
	TargetOrder int `json:"target_order" validate:"required,gte=1"`
}

type templateResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func templateToResponse(t *selection.Template) *templateResponse {
	return &templateResponse{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt}
}

type categoryResponse struct {
	ID               uuid.UUID `json:"id"`
	TemplateID       uuid.UUID `json:"template_id"`
	Name             string    `json:"name"`
	InitialSortOrder int       `json:"initial_sort_order"`
	PaintSortOrder   int       `json:"paint_sort_order"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func categoryToResponse(cat *selection.Category) *categoryResponse {
	initial, _ := cat.InitialPosition.Order()
	paint, _ := cat.PaintPosition.Order()
	return &categoryResponse{
		ID:               cat.ID,
		TemplateID:       cat.TemplateID,
		Name:             cat.Name,
		InitialSortOrder: initial,
		PaintSortOrder:   paint,
		CreatedAt:        cat.CreatedAt,
		UpdatedAt:        cat.UpdatedAt,
	}
}

type questionResponse struct {
	ID         uuid.UUID `json:"id"`
	CategoryID uuid.UUID `json:"category_id"`
	Prompt     string    `json:"prompt"`
	SortOrder  int       `json:"sort_order"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func questionToResponse(q *selection.Question) *questionResponse {
	order, _ := q.Position.Order()
	return &questionResponse{
		ID:         q.ID,
		CategoryID: q.CategoryID,
		Prompt:     q.Prompt,
		SortOrder:  order,
		CreatedAt:  q.CreatedAt,
		UpdatedAt:  q.UpdatedAt,
	}
}

type SelectionsAPIController struct {
	templates  *services.TemplateService
	categories *services.CategoryService
	questions  *services.QuestionService
	basePath   string
}

func NewSelectionsAPIController(app *application.Application) application.Controller {
	return &SelectionsAPIController{
		templates:  app.Service(services.TemplateService{}).(*services.TemplateService),
		categories: app.Service(services.CategoryService{}).(*services.CategoryService),
		questions:  app.Service(services.QuestionService{}).(*services.QuestionService),
		basePath:   "/api/selections",
	}
}

func (c *SelectionsAPIController) Key() string {
	return c.basePath
}

func (c *SelectionsAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(middleware.RequireTenantID())

	router.HandleFunc("/templates", c.CreateTemplate).Methods(http.MethodPost)
	router.HandleFunc("/templates", c.ListTemplates).Methods(http.MethodGet)
	router.HandleFunc("/templates/{templateID}", c.GetTemplate).Methods(http.MethodGet)
	router.HandleFunc("/templates/{templateID}", c.RenameTemplate).Methods(http.MethodPatch)
	router.HandleFunc("/templates/{templateID}", c.DeleteTemplate).Methods(http.MethodDelete)

	router.HandleFunc("/templates/{templateID}/categories", c.CreateCategory).Methods(http.MethodPost)
	router.HandleFunc("/templates/{templateID}/categories", c.ListCategories).Methods(http.MethodGet)
	router.HandleFunc("/templates/{templateID}/categories/{categoryID}/position", c.MoveCategory).Methods(http.MethodPut)
	router.HandleFunc("/templates/{templateID}/categories/{categoryID}", c.DeleteCategory).Methods(http.MethodDelete)
	router.HandleFunc("/categories/{categoryID}", c.RenameCategory).Methods(http.MethodPatch)

	router.HandleFunc("/categories/{categoryID}/questions", c.CreateQuestion).Methods(http.MethodPost)
	router.HandleFunc("/categories/{categoryID}/questions", c.ListQuestions).Methods(http.MethodGet)
	router.HandleFunc("/categories/{categoryID}/questions/{questionID}/position", c.MoveQuestion).Methods(http.MethodPut)
	router.HandleFunc("/categories/{categoryID}/questions/{questionID}", c.DeleteQuestion).Methods(http.MethodDelete)
	router.HandleFunc("/questions/{questionID}", c.RephraseQuestion).Methods(http.MethodPatch)
}

func (c *SelectionsAPIController) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	var dto createTemplateRequest
	if !decodeBody(w, r, &dto) {
		return
	}
	tpl, err := c.templates.Create(r.Context(), tenantID, dto.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, templateToResponse(tpl))
}

func (c *SelectionsAPIController) ListTemplates(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	templates, err := c.templates.List(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]*templateResponse, 0, len(templates))
	for _, t := range templates {
		out = append(out, templateToResponse(t))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (c *SelectionsAPIController) GetTemplate(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	templateID, ok := pathUUID(w, r, "templateID")
	if !ok {
		return
	}
	tpl, err := c.templates.GetByID(r.Context(), tenantID, templateID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, templateToResponse(tpl))
}

func (c *SelectionsAPIController) RenameTemplate(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	templateID, ok := pathUUID(w, r, "templateID")
	if !ok {
		return
	}
	var dto renameRequest
	if !decodeBody(w, r, &dto) {
		return
	}
	if err := c.templates.Rename(r.Context(), tenantID, templateID, dto.Name); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

func (c *SelectionsAPIController) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	templateID, ok := pathUUID(w, r, "templateID")
	if !ok {
		return
	}
	if err := c.templates.Delete(r.Context(), tenantID, templateID); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

func (c *SelectionsAPIController) CreateCategory(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	templateID, ok := pathUUID(w, r, "templateID")
	if !ok {
		return
	}
	var dto createCategoryRequest
	if !decodeBody(w, r, &dto) {
		return
	}
	cat, err := c.categories.Create(r.Context(), tenantID, services.CreateCategoryInput{
		TemplateID:  templateID,
		Name:        dto.Name,
		TargetOrder: dto.TargetOrder,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, categoryToResponse(cat))
}

func (c *SelectionsAPIController) ListCategories(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	templateID, ok := pathUUID(w, r, "templateID")
	if !ok {
		return
	}
	raw := strings.TrimSpace(r.URL.Query().Get("dimension"))
	if raw == "" {
		raw = string(selection.DimensionInitial)
	}
	dim, ok := selection.ParseDimension(raw)
	if !ok {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "SEL_INVALID_BODY", "unknown dimension", nil)
		return
	}
	categories, err := c.categories.ListByTemplate(r.Context(), tenantID, templateID, dim)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]*categoryResponse, 0, len(categories))
	for _, cat := range categories {
		out = append(out, categoryToResponse(cat))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (c *SelectionsAPIController) MoveCategory(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	templateID, ok := pathUUID(w, r, "templateID")
	if !ok {
		return
	}
	categoryID, ok := pathUUID(w, r, "categoryID")
	if !ok {
		return
	}
	var dto moveCategoryRequest
	if !decodeBody(w, r, &dto) {
		return
	}
	dim, ok := selection.ParseDimension(dto.Dimension)
	if !ok {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "SEL_INVALID_BODY", "unknown dimension", nil)
		return
	}
	if err := c.categories.Move(r.Context(), tenantID, templateID, categoryID, dim, dto.TargetOrder); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

func (c *SelectionsAPIController) RenameCategory(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	categoryID, ok := pathUUID(w, r, "categoryID")
	if !ok {
		return
	}
	var dto renameRequest
	if !decodeBody(w, r, &dto) {
		return
	}
	if err := c.categories.Rename(r.Context(), tenantID, categoryID, dto.Name); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

func (c *SelectionsAPIController) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	templateID, ok := pathUUID(w, r, "templateID")
	if !ok {
		return
	}
	categoryID, ok := pathUUID(w, r, "categoryID")
	if !ok {
		return
	}
	if err := c.categories.Delete(r.Context(), tenantID, templateID, categoryID); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

func (c *SelectionsAPIController) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	categoryID, ok := pathUUID(w, r, "categoryID")
	if !ok {
		return
	}
	var dto createQuestionRequest
	if !decodeBody(w, r, &dto) {
		return
	}
	q, err := c.questions.Create(r.Context(), tenantID, services.CreateQuestionInput{
		CategoryID:  categoryID,
		Prompt:      dto.Prompt,
		TargetOrder: dto.TargetOrder,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, questionToResponse(q))
}

func (c *SelectionsAPIController) ListQuestions(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	categoryID, ok := pathUUID(w, r, "categoryID")
	if !ok {
		return
	}
	questions, err := c.questions.ListByCategory(r.Context(), tenantID, categoryID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]*questionResponse, 0, len(questions))
	for _, q := range questions {
		out = append(out, questionToResponse(q))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (c *SelectionsAPIController) MoveQuestion(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	categoryID, ok := pathUUID(w, r, "categoryID")
	if !ok {
		return
	}
	questionID, ok := pathUUID(w, r, "questionID")
	if !ok {
		return
	}
	var dto moveRequest
	if !decodeBody(w, r, &dto) {
		return
	}
	if err := c.questions.Move(r.Context(), tenantID, categoryID, questionID, dto.TargetOrder); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

func (c *SelectionsAPIController) RephraseQuestion(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	questionID, ok := pathUUID(w, r, "questionID")
	if !ok {
		return
	}
	var dto rephraseRequest
	if !decodeBody(w, r, &dto) {
		return
	}
	if err := c.questions.Rephrase(r.Context(), tenantID, questionID, dto.Prompt); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

func (c *SelectionsAPIController) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	categoryID, ok := pathUUID(w, r, "categoryID")
	if !ok {
		return
	}
	questionID, ok := pathUUID(w, r, "questionID")
	if !ok {
		return
	}
	if err := c.questions.Delete(r.Context(), tenantID, categoryID, questionID); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}
