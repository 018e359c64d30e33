package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/acctbay/storefront-backend/internal/auth"
	"github.com/acctbay/storefront-backend/pkg/db/models"
	pkgerrors "github.com/acctbay/storefront-backend/pkg/errors"
	"github.com/acctbay/storefront-backend/pkg/logger"
)

// Service exposes review submission and reads.
type Service interface {
	Submit(ctx context.Context, sess auth.Session, req SubmitReviewRequest) (*ReviewDTO, error)
	List(ctx context.Context, limit int) ([]ReviewDTO, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]ReviewDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type reviewRepo interface {
	Create(ctx context.Context, review *models.Review) error
	Find(ctx context.Context, id uuid.UUID) (*models.Review, error)
	List(ctx context.Context, limit int) ([]models.Review, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]models.Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type productFinder interface {
	Find(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type purchaseChecker interface {
	HasPurchase(ctx context.Context, userID, productID uuid.UUID) (bool, error)
}

type service struct {
	repo      reviewRepo
	products  productFinder
	purchases purchaseChecker
	logg      *logger.Logger
}

// ServiceParams bundles the dependencies required to build a reviews service.
type ServiceParams struct {
	Repo      reviewRepo
	Products  productFinder
	Purchases purchaseChecker
	Logger    *logger.Logger
}

// NewService constructs a reviews service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reviews repository is required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product finder is required")
	}
	if params.Purchases == nil {
		return nil, fmt.Errorf("purchase checker is required")
	}
	return &service{
		repo:      params.Repo,
		products:  params.Products,
		purchases: params.Purchases,
		logg:      params.Logger,
	}, nil
}

func (s *service) Submit(ctx context.Context, sess auth.Session, req SubmitReviewRequest) (*ReviewDTO, error) {
	if sess.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "sign in to leave a review")
	}
	author := strings.TrimSpace(req.Author)
	comment := strings.TrimSpace(req.Comment)
	if author == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "author is required")
	}
	if comment == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment is required")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	if req.ProductID != nil {
		if _, err := s.products.Find(ctx, *req.ProductID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}
	}

	// Verified is decided once at submission and never recomputed.
	verified := false
	if req.ProductID != nil {
		ok, err := s.purchases.HasPurchase(ctx, sess.UserID, *req.ProductID)
		if err != nil {
			if s.logg != nil {
				s.logg.Warn(ctx, fmt.Sprintf("verified purchase check failed: %v", err))
			}
		} else {
			verified = ok
		}
	}

	userID := sess.UserID
	review := &models.Review{
		ID:        uuid.New(),
		ProductID: req.ProductID,
		UserID:    &userID,
		Author:    author,
		Rating:    req.Rating,
		Comment:   comment,
		Verified:  verified,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create review")
	}

	dto := FromModel(*review)
	return &dto, nil
}

func (s *service) List(ctx context.Context, limit int) ([]ReviewDTO, error) {
	rows, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reviews")
	}
	return mapReviews(rows), nil
}

func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]ReviewDTO, error) {
	rows, err := s.repo.ListByProduct(ctx, productID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list product reviews")
	}
	return mapReviews(rows), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.Find(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load review")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete review")
	}
	return nil
}

func mapReviews(rows []models.Review) []ReviewDTO {
	out := make([]ReviewDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}
