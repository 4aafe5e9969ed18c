package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/structura-io/structura/modules/selections/domain/entities/selection"
	"github.com/structura-io/structura/pkg/eventbus"
)

type TemplateService struct {
	templates selection.TemplateRepository
	publisher eventbus.EventBus
}

func NewTemplateService(templates selection.TemplateRepository, publisher eventbus.EventBus) *TemplateService {
	return &TemplateService{templates: templates, publisher: publisher}
}

func (s *TemplateService) Create(ctx context.Context, tenantID uuid.UUID, name string) (*selection.Template, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newServiceError(http.StatusBadRequest, "SEL_INVALID_BODY", "name is required", nil)
	}
	if tenantID == uuid.Nil {
		return nil, newServiceError(http.StatusBadRequest, "SEL_NO_TENANT", "tenant_id is required", nil)
	}

	template := &selection.Template{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     name,
	}
	created, err := inTx(ctx, tenantID, func(txCtx context.Context) (*selection.Template, error) {
		if err := s.templates.Create(txCtx, template); err != nil {
			return nil, mapPgError(err)
		}
		return s.templates.GetByID(txCtx, template.ID)
	})
	if err != nil {
		return nil, mapPgError(err)
	}

	s.publisher.Publish(selection.TemplateCreatedEvent{Result: *created})
	return created, nil
}

func (s *TemplateService) GetByID(ctx context.Context, tenantID, templateID uuid.UUID) (*selection.Template, error) {
	template, err := inTx(ctx, tenantID, func(txCtx context.Context) (*selection.Template, error) {
		return s.loadTemplate(txCtx, tenantID, templateID)
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return template, nil
}

func (s *TemplateService) List(ctx context.Context, tenantID uuid.UUID) ([]*selection.Template, error) {
	templates, err := inTx(ctx, tenantID, func(txCtx context.Context) ([]*selection.Template, error) {
		return s.templates.List(txCtx)
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return templates, nil
}

func (s *TemplateService) Rename(ctx context.Context, tenantID, templateID uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return newServiceError(http.StatusBadRequest, "SEL_INVALID_BODY", "name is required", nil)
	}
	_, err := inTx(ctx, tenantID, func(txCtx context.Context) (struct{}, error) {
		if _, err := s.loadTemplate(txCtx, tenantID, templateID); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, s.templates.Rename(txCtx, templateID, name)
	})
	if err != nil {
		return mapPgError(err)
	}
	s.publisher.Publish(selection.TemplateRenamedEvent{TemplateID: templateID, Name: name})
	return nil
}

func (s *TemplateService) Delete(ctx context.Context, tenantID, templateID uuid.UUID) error {
	_, err := inTx(ctx, tenantID, func(txCtx context.Context) (struct{}, error) {
		if _, err := s.loadTemplate(txCtx, tenantID, templateID); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, s.templates.MarkDeleted(txCtx, templateID)
	})
	if err != nil {
		return mapPgError(err)
	}
	s.publisher.Publish(selection.TemplateDeletedEvent{TemplateID: templateID})
	return nil
}

func (s *TemplateService) loadTemplate(ctx context.Context, tenantID, templateID uuid.UUID) (*selection.Template, error) {
	template, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return nil, mapPgError(err)
	}
	if template.TenantID != tenantID {
		return nil, newServiceError(http.StatusForbidden, "SEL_FORBIDDEN", "template belongs to another tenant", nil)
	}
	return template, nil
}
