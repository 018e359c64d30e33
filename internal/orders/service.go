package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/acctbay/storefront-backend/pkg/db/models"
	"github.com/acctbay/storefront-backend/pkg/enums"
	pkgerrors "github.com/acctbay/storefront-backend/pkg/errors"
)

// Service exposes order history reads and the admin status transition.
type Service interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error)
	List(ctx context.Context, limit int) ([]OrderDTO, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, req UpdateStatusRequest) (*OrderDTO, error)
}

type orderRepo interface {
	Find(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	List(ctx context.Context, limit int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error
}

type service struct {
	repo orderRepo
}

// ServiceParams bundles the dependencies required to build an orders service.
type ServiceParams struct {
	Repo orderRepo
}

// NewService constructs an orders service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository is required")
	}
	return &service{repo: params.Repo}, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "sign in to view orders")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return mapOrders(rows), nil
}

func (s *service) List(ctx context.Context, limit int) ([]OrderDTO, error) {
	rows, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return mapOrders(rows), nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, req UpdateStatusRequest) (*OrderDTO, error) {
	status, err := enums.ParseOrderStatus(req.Status)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	if _, err := s.repo.Find(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	fresh, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
	}
	dto := FromModel(*fresh)
	return &dto, nil
}

func mapOrders(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}
