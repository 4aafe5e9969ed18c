package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/structura-io/structura/modules/estimation/domain/entities/estimate"
	"github.com/structura-io/structura/modules/estimation/services"
)

type createSheetRequest struct {
	Kind         string     `json:"kind" validate:"required,oneof=template job"`
	JobID        *uuid.UUID `json:"job_id"`
	Name         string     `json:"name" validate:"required"`
	ProfitPolicy string     `json:"profit_policy" validate:"required"`
}

type renameRequest struct {
	Name string `json:"name" validate:"required"`
}

type changeProfitPolicyRequest struct {
	ProfitPolicy string `json:"profit_policy" validate:"required"`
}

type createHeaderRequest struct {
	Name string `json:"name" validate:"required"`
	// Omitted or zero appends at the end.
	TargetOrder int `json:"target_order" validate:"gte=0"`
}

type moveRequest struct {
	TargetOrder int `json:"target_order" validate:"required,gte=1"`
}

type lineItemRequest struct {
	Name                 string          `json:"name" validate:"required"`
	UnitCost             decimal.Decimal `json:"unit_cost"`
	Quantity             decimal.Decimal `json:"quantity"`
	ActualCost           decimal.Decimal `json:"actual_cost"`
	DesiredProfit        decimal.Decimal `json:"desired_profit"`
	SalesTaxPercentage   decimal.Decimal `json:"sales_tax_percentage"`
	IsSalesTaxApplicable bool            `json:"is_sales_tax_applicable"`
}

type createLineItemRequest struct {
	lineItemRequest
	TargetOrder int `json:"target_order" validate:"gte=0"`
}

func (d *lineItemRequest) toInput() services.LineItemInput {
	return services.LineItemInput{
		Name:                 d.Name,
		UnitCost:             d.UnitCost,
		Quantity:             d.Quantity,
		ActualCost:           d.ActualCost,
		DesiredProfit:        d.DesiredProfit,
		SalesTaxPercentage:   d.SalesTaxPercentage,
		IsSalesTaxApplicable: d.IsSalesTaxApplicable,
	}
}

type sheetResponse struct {
	ID           uuid.UUID  `json:"id"`
	Kind         string     `json:"kind"`
	JobID        *uuid.UUID `json:"job_id,omitempty"`
	Name         string     `json:"name"`
	ProfitPolicy string     `json:"profit_policy"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func sheetToResponse(s *estimate.Sheet) *sheetResponse {
	return &sheetResponse{
		ID:           s.ID,
		Kind:         string(s.Kind),
		JobID:        s.JobID,
		Name:         s.Name,
		ProfitPolicy: string(s.ProfitPolicy),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

type headerResponse struct {
	ID        uuid.UUID `json:"id"`
	SheetID   uuid.UUID `json:"sheet_id"`
	Name      string    `json:"name"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func headerToResponse(h *estimate.Header) *headerResponse {
	order, _ := h.Position.Order()
	return &headerResponse{
		ID:        h.ID,
		SheetID:   h.SheetID,
		Name:      h.Name,
		SortOrder: order,
		CreatedAt: h.CreatedAt,
		UpdatedAt: h.UpdatedAt,
	}
}

type lineItemResponse struct {
	ID                   uuid.UUID       `json:"id"`
	HeaderID             uuid.UUID       `json:"header_id"`
	Name                 string          `json:"name"`
	UnitCost             decimal.Decimal `json:"unit_cost"`
	Quantity             decimal.Decimal `json:"quantity"`
	ActualCost           decimal.Decimal `json:"actual_cost"`
	DesiredProfit        decimal.Decimal `json:"desired_profit"`
	ContractPrice        decimal.Decimal `json:"contract_price"`
	SalesTaxPercentage   decimal.Decimal `json:"sales_tax_percentage"`
	IsSalesTaxApplicable bool            `json:"is_sales_tax_applicable"`
	SortOrder            int             `json:"sort_order"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func lineItemToResponse(it *estimate.LineItem) *lineItemResponse {
	order, _ := it.Position.Order()
	return &lineItemResponse{
		ID:                   it.ID,
		HeaderID:             it.HeaderID,
		Name:                 it.Name,
		UnitCost:             it.UnitCost,
		Quantity:             it.Quantity,
		ActualCost:           it.ActualCost,
		DesiredProfit:        it.DesiredProfit,
		ContractPrice:        it.ContractPrice,
		SalesTaxPercentage:   it.SalesTaxPercentage,
		IsSalesTaxApplicable: it.IsSalesTaxApplicable,
		SortOrder:            order,
		CreatedAt:            it.CreatedAt,
		UpdatedAt:            it.UpdatedAt,
	}
}

type importFailureResponse struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type importResponse struct {
	SheetID        uuid.UUID               `json:"sheet_id"`
	HeadersCreated int                     `json:"headers_created"`
	ItemsCreated   int                     `json:"items_created"`
	Failures       []importFailureResponse `json:"failures"`
}

func importToResponse(res *services.ImportResult) *importResponse {
	out := &importResponse{
		SheetID:        res.SheetID,
		HeadersCreated: res.HeadersCreated,
		ItemsCreated:   res.ItemsCreated,
		Failures:       make([]importFailureResponse, 0, len(res.Failures)),
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, importFailureResponse{Key: f.Key, Name: f.Name, Reason: f.Reason})
	}
	return out
}
