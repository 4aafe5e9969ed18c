package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/structura-io/structura/modules/questionnaire/domain/entities/questionnaire"
	"github.com/structura-io/structura/modules/questionnaire/services"
	"github.com/structura-io/structura/pkg/application"
	"github.com/structura-io/structura/pkg/composables"
	"github.com/structura-io/structura/pkg/httpapi"
	"github.com/structura-io/structura/pkg/middleware"
)

type templateResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type categoryResponse struct {
	ID         uuid.UUID `json:"id"`
	TemplateID uuid.UUID `json:"template_id"`
	Name       string    `json:"name"`
	SortOrder  int       `json:"sort_order"`
	CreatedAt  time.Time `json:"created_at"`
}

func categoryToResponse(cat *questionnaire.Category) *categoryResponse {
	order, _ := cat.Position.Order()
	return &categoryResponse{
		ID:         cat.ID,
		TemplateID: cat.TemplateID,
		Name:       cat.Name,
		SortOrder:  order,
		CreatedAt:  cat.CreatedAt,
	}
}

type QuestionnaireAPIController struct {
	svc      *services.QuestionnaireService
	basePath string
}

func NewQuestionnaireAPIController(app *application.Application) application.Controller {
	return &QuestionnaireAPIController{
		svc:      app.Service(services.QuestionnaireService{}).(*services.QuestionnaireService),
		basePath: "/api/questionnaire",
	}
}

func (c *QuestionnaireAPIController) Key() string {
	return c.basePath
}

func (c *QuestionnaireAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(middleware.RequireTenantID())

	router.HandleFunc("/templates", c.CreateTemplate).Methods(http.MethodPost)
	router.HandleFunc("/templates", c.ListTemplates).Methods(http.MethodGet)
	router.HandleFunc("/templates/{templateID}", c.DeleteTemplate).Methods(http.MethodDelete)
	router.HandleFunc("/templates/{templateID}/categories", c.CreateCategory).Methods(http.MethodPost)
	router.HandleFunc("/templates/{templateID}/categories", c.ListCategories).Methods(http.MethodGet)
	router.HandleFunc("/templates/{templateID}/categories/{categoryID}/position", c.MoveCategory).Methods(http.MethodPut)
	router.HandleFunc("/templates/{templateID}/categories/{categoryID}", c.DeleteCategory).Methods(http.MethodDelete)
}

func (c *QuestionnaireAPIController) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := c.tenant(w, r)
	if !ok {
		return
	}
	var dto struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "QN_INVALID_BODY", "invalid json", nil)
		return
	}
	tpl, err := c.svc.CreateTemplate(r.Context(), tenantID, dto.Name)
	if err != nil {
		c.writeError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, &templateResponse{ID: tpl.ID, Name: tpl.Name, CreatedAt: tpl.CreatedAt})
}

func (c *QuestionnaireAPIController) ListTemplates(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := c.tenant(w, r)
	if !ok {
		return
	}
	templates, err := c.svc.ListTemplates(r.Context(), tenantID)
	if err != nil {
		c.writeError(w, err)
		return
	}
	out := make([]*templateResponse, 0, len(templates))
	for _, t := range templates {
		out = append(out, &templateResponse{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt})
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (c *QuestionnaireAPIController) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := c.tenant(w, r)
	if !ok {
		return
	}
	templateID, ok := c.pathUUID(w, r, "templateID")
	if !ok {
		return
	}
	if err := c.svc.DeleteTemplate(r.Context(), tenantID, templateID); err != nil {
		c.writeError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

func (c *QuestionnaireAPIController) CreateCategory(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := c.tenant(w, r)
	if !ok {
		return
	}
	templateID, ok := c.pathUUID(w, r, "templateID")
	if !ok {
		return
	}
	var dto struct {
		Name        string `json:"name"`
		TargetOrder int    `json:"target_order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "QN_INVALID_BODY", "invalid json", nil)
		return
	}
	cat, err := c.svc.CreateCategory(r.Context(), tenantID, services.CreateCategoryInput{
		TemplateID:  templateID,
		Name:        dto.Name,
		TargetOrder: dto.TargetOrder,
	})
	if err != nil {
		c.writeError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, categoryToResponse(cat))
}

func (c *QuestionnaireAPIController) ListCategories(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := c.tenant(w, r)
	if !ok {
		return
	}
	templateID, ok := c.pathUUID(w, r, "templateID")
	if !ok {
		return
	}
	categories, err := c.svc.ListCategories(r.Context(), tenantID, templateID)
	if err != nil {
		c.writeError(w, err)
		return
	}
	out := make([]*categoryResponse, 0, len(categories))
	for _, cat := range categories {
		out = append(out, categoryToResponse(cat))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (c *QuestionnaireAPIController) MoveCategory(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := c.tenant(w, r)
	if !ok {
		return
	}
	templateID, ok := c.pathUUID(w, r, "templateID")
	if !ok {
		return
	}
	categoryID, ok := c.pathUUID(w, r, "categoryID")
	if !ok {
		return
	}
	var dto struct {
		TargetOrder int `json:"target_order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "QN_INVALID_BODY", "invalid json", nil)
		return
	}
	if err := c.svc.MoveCategory(r.Context(), tenantID, templateID, categoryID, dto.TargetOrder); err != nil {
		c.writeError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

func (c *QuestionnaireAPIController) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := c.tenant(w, r)
	if !ok {
		return
	}
	templateID, ok := c.pathUUID(w, r, "templateID")
	if !ok {
		return
	}
	categoryID, ok := c.pathUUID(w, r, "categoryID")
	if !ok {
		return
	}
	if err := c.svc.DeleteCategory(r.Context(), tenantID, templateID, categoryID); err != nil {
		c.writeError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

func (c *QuestionnaireAPIController) tenant(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	tenantID, err := composables.UseTenantID(r.Context())
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "QN_NO_TENANT", "tenant_id is required", nil)
		return uuid.Nil, false
	}
	return tenantID, true
}

func (c *QuestionnaireAPIController) pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "QN_INVALID_BODY", "invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

func (c *QuestionnaireAPIController) writeError(w http.ResponseWriter, err error) {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		var meta map[string]string
		if svcErr.Retryable {
			meta = map[string]string{"retryable": "true"}
		}
		_ = httpapi.WriteError(w, svcErr.Status, svcErr.Code, svcErr.Message, meta)
		return
	}
	_ = httpapi.WriteError(w, http.StatusInternalServerError, "QN_INTERNAL", "internal error", nil)
}
