package controllers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/structura-io/structura/modules/estimation/domain/entities/estimate"
	"github.com/structura-io/structura/modules/estimation/infrastructure/importfile"
	"github.com/structura-io/structura/modules/estimation/services"
	"github.com/structura-io/structura/pkg/application"
	"github.com/structura-io/structura/pkg/httpapi"
	"github.com/structura-io/structura/pkg/middleware"
)

// importFileLimit bounds the accepted upload size; row limits are enforced
// separately by the import service.
const importFileLimit = 16 << 20

type EstimationAPIController struct {
	sheets   *services.SheetService
	headers  *services.HeaderService
	items    *services.LineItemService
	imports  *services.ImportService
	basePath string
}

func NewEstimationAPIController(app *application.Application) application.Controller {
	return &EstimationAPIController{
		sheets:   app.Service(services.SheetService{}).(*services.SheetService),
		headers:  app.Service(services.HeaderService{}).(*services.HeaderService),
		items:    app.Service(services.LineItemService{}).(*services.LineItemService),
		imports:  app.Service(services.ImportService{}).(*services.ImportService),
		basePath: "/api/estimation",
	}
}

func (c *EstimationAPIController) Key() string {
	return c.basePath
}

func (c *EstimationAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(middleware.RequireTenantID())

	router.HandleFunc("/sheets", c.CreateSheet).Methods(http.MethodPost)
	router.HandleFunc("/sheets", c.ListSheets).Methods(http.MethodGet)
	router.HandleFunc("/sheets/{sheetID}", c.GetSheet).Methods(http.MethodGet)
	router.HandleFunc("/sheets/{sheetID}", c.RenameSheet).Methods(http.MethodPatch)
	router.HandleFunc("/sheets/{sheetID}", c.DeleteSheet).Methods(http.MethodDelete)
	router.HandleFunc("/sheets/{sheetID}/profit-policy", c.ChangeProfitPolicy).Methods(http.MethodPut)
	router.HandleFunc("/sheets/{sheetID}/import", c.ImportSheet).Methods(http.MethodPost)

	router.HandleFunc("/sheets/{sheetID}/headers", c.CreateHeader).Methods(http.MethodPost)
	router.HandleFunc("/sheets/{sheetID}/headers", c.ListHeaders).Methods(http.MethodGet)
	router.HandleFunc("/sheets/{sheetID}/headers/{headerID}/position", c.MoveHeader).Methods(http.MethodPut)
	router.HandleFunc("/sheets/{sheetID}/headers/{headerID}", c.DeleteHeader).Methods(http.MethodDelete)
	router.HandleFunc("/headers/{headerID}", c.RenameHeader).Methods(http.MethodPatch)

	router.HandleFunc("/headers/{headerID}/items", c.CreateLineItem).Methods(http.MethodPost)
	router.HandleFunc("/headers/{headerID}/items", c.ListLineItems).Methods(http.MethodGet)
	router.HandleFunc("/headers/{headerID}/items/{itemID}/position", c.MoveLineItem).Methods(http.MethodPut)
	router.HandleFunc("/headers/{headerID}/items/{itemID}", c.DeleteLineItem).Methods(http.MethodDelete)
	router.HandleFunc("/items/{itemID}", c.UpdateLineItem).Methods(http.MethodPut)
}

func (c *EstimationAPIController) CreateSheet(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	var dto createSheetRequest
	if !decodeBody(w, r, &dto) {
		return
	}

	sheet, err := c.sheets.Create(r.Context(), tenantID, services.CreateSheetInput{
		Kind:         estimate.SheetKind(dto.Kind),
		JobID:        dto.JobID,
		Name:         dto.Name,
		ProfitPolicy: dto.ProfitPolicy,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, sheetToResponse(sheet))
}

func (c *EstimationAPIController) ListSheets(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	kind := estimate.SheetKind(strings.TrimSpace(r.URL.Query().Get("kind")))
	if kind == "" {
		kind = estimate.KindTemplate
	}
	if kind != estimate.KindTemplate && kind != estimate.KindJob {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "EST_INVALID_BODY", "unknown sheet kind", nil)
		return
	}

	sheets, err := c.sheets.List(r.Context(), tenantID, kind)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]*sheetResponse, 0, len(sheets))
	for _, s := range sheets {
		out = append(out, sheetToResponse(s))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (c *EstimationAPIController) GetSheet(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	sheetID, ok := pathUUID(w, r, "sheetID")
	if !ok {
		return
	}
	sheet, err := c.sheets.GetByID(r.Context(), tenantID, sheetID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, sheetToResponse(sheet))
}

func (c *EstimationAPIController) RenameSheet(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	sheetID, ok := pathUUID(w, r, "sheetID")
	if !ok {
		return
	}
	var dto renameRequest
	if !decodeBody(w, r, &dto) {
		return
	}
	if err := c.sheets.Rename(r.Context(), tenantID, sheetID, dto.Name); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

func (c *EstimationAPIController) DeleteSheet(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	sheetID, ok := pathUUID(w, r, "sheetID")
	if !ok {
		return
	}
	if err := c.sheets.Delete(r.Context(), tenantID, sheetID); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

func (c *EstimationAPIController) ChangeProfitPolicy(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	sheetID, ok := pathUUID(w, r, "sheetID")
	if !ok {
		return
	}
	var dto changeProfitPolicyRequest
	if !decodeBody(w, r, &dto) {
		return
	}
	recomputed, err := c.sheets.ChangeProfitPolicy(r.Context(), tenantID, sheetID, dto.ProfitPolicy)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"profit_policy":    dto.ProfitPolicy,
		"items_recomputed": recomputed,
	})
}

func (c *EstimationAPIController) ImportSheet(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	sheetID, ok := pathUUID(w, r, "sheetID")
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(importFileLimit); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "EST_INVALID_BODY", "expected multipart form with a file field", nil)
		return
	}
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "EST_INVALID_BODY", "file field is required", nil)
		return
	}
	defer func() { _ = file.Close() }()

	decode := importfile.DecodeCSV
	if strings.EqualFold(filepath.Ext(fileHeader.Filename), ".xlsx") {
		decode = importfile.DecodeWorkbook
	}
	rows, err := decode(file)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "EST_IMPORT_INVALID", err.Error(), nil)
		return
	}

	result, err := c.imports.Import(r.Context(), tenantID, sheetID, rows)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, importToResponse(result))
}

func (c *EstimationAPIController) CreateHeader(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	sheetID, ok := pathUUID(w, r, "sheetID")
	if !ok {
		return
	}
	var dto createHeaderRequest
	if !decodeBody(w, r, &dto) {
		return
	}
	header, err := c.headers.Create(r.Context(), tenantID, services.CreateHeaderInput{
		SheetID:     sheetID,
		Name:        dto.Name,
		TargetOrder: dto.TargetOrder,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, headerToResponse(header))
}

func (c *EstimationAPIController) ListHeaders(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	sheetID, ok := pathUUID(w, r, "sheetID")
	if !ok {
		return
	}
	headers, err := c.headers.ListBySheet(r.Context(), tenantID, sheetID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]*headerResponse, 0, len(headers))
	for _, h := range headers {
		out = append(out, headerToResponse(h))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (c *EstimationAPIController) MoveHeader(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	sheetID, ok := pathUUID(w, r, "sheetID")
	if !ok {
		return
	}
	headerID, ok := pathUUID(w, r, "headerID")
	if !ok {
		return
	}
	var dto moveRequest
	if !decodeBody(w, r, &dto) {
		return
	}
	if err := c.headers.Move(r.Context(), tenantID, sheetID, headerID, dto.TargetOrder); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

func (c *EstimationAPIController) RenameHeader(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	headerID, ok := pathUUID(w, r, "headerID")
	if !ok {
		return
	}
	var dto renameRequest
	if !decodeBody(w, r, &dto) {
		return
	}
	if err := c.headers.Rename(r.Context(), tenantID, headerID, dto.Name); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

func (c *EstimationAPIController) DeleteHeader(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	sheetID, ok := pathUUID(w, r, "sheetID")
	if !ok {
		return
	}
	headerID, ok := pathUUID(w, r, "headerID")
	if !ok {
		return
	}
	if err := c.headers.Delete(r.Context(), tenantID, sheetID, headerID); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

func (c *EstimationAPIController) CreateLineItem(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	headerID, ok := pathUUID(w, r, "headerID")
	if !ok {
		return
	}
	var dto createLineItemRequest
	if !decodeBody(w, r, &dto) {
		return
	}
	item, err := c.items.Create(r.Context(), tenantID, services.CreateLineItemInput{
		HeaderID:      headerID,
		LineItemInput: dto.toInput(),
		TargetOrder:   dto.TargetOrder,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, lineItemToResponse(item))
}

func (c *EstimationAPIController) ListLineItems(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	headerID, ok := pathUUID(w, r, "headerID")
	if !ok {
		return
	}
	items, err := c.items.ListByHeader(r.Context(), tenantID, headerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]*lineItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, lineItemToResponse(it))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (c *EstimationAPIController) UpdateLineItem(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemID")
	if !ok {
		return
	}
	var dto lineItemRequest
	if !decodeBody(w, r, &dto) {
		return
	}
	item, err := c.items.Update(r.Context(), tenantID, itemID, dto.toInput())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, lineItemToResponse(item))
}

func (c *EstimationAPIController) MoveLineItem(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	headerID, ok := pathUUID(w, r, "headerID")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemID")
	if !ok {
		return
	}
	var dto moveRequest
	if !decodeBody(w, r, &dto) {
		return
	}
	if err := c.items.Move(r.Context(), tenantID, headerID, itemID, dto.TargetOrder); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

func (c *EstimationAPIController) DeleteLineItem(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(w, r)
	if !ok {
		return
	}
	headerID, ok := pathUUID(w, r, "headerID")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemID")
	if !ok {
		return
	}
	if err := c.items.Delete(r.Context(), tenantID, headerID, itemID); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}
