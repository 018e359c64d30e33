package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/acctbay/storefront-backend/pkg/db"
	"github.com/acctbay/storefront-backend/pkg/db/models"
	pkgerrors "github.com/acctbay/storefront-backend/pkg/errors"
)

// Service exposes catalog reads plus the admin management surface.
type Service interface {
	List(ctx context.Context) ([]ProductDTO, error)
	Featured(ctx context.Context) ([]ProductDTO, error)
	BySlug(ctx context.Context, slug string) (*ProductDTO, error)
	Find(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Variants(ctx context.Context, productID uuid.UUID) ([]VariantDTO, error)

	CreateProduct(ctx context.Context, req CreateProductRequest) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	CreateVariant(ctx context.Context, productID uuid.UUID, req CreateVariantRequest) (*VariantDTO, error)
	UpdateVariant(ctx context.Context, id uuid.UUID, req UpdateVariantRequest) (*VariantDTO, error)
	DeleteVariant(ctx context.Context, id uuid.UUID) error
}

type catalogRepo interface {
	Find(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	ListActive(ctx context.Context) ([]models.Product, error)
	ListFeatured(ctx context.Context) ([]models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	ListVariants(ctx context.Context, productID uuid.UUID) ([]models.ProductVariant, error)
	CreateVariant(ctx context.Context, variant *models.ProductVariant) error
	UpdateVariant(ctx context.Context, variant *models.ProductVariant) error
	DeleteVariant(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo catalogRepo
}

// ServiceParams bundles the dependencies required to build a catalog service.
type ServiceParams struct {
	Repo catalogRepo
}

// NewService constructs a catalog service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("catalog repository is required")
	}
	return &service{repo: params.Repo}, nil
}

func (s *service) List(ctx context.Context) ([]ProductDTO, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return mapProducts(rows), nil
}

func (s *service) Featured(ctx context.Context) ([]ProductDTO, error) {
	rows, err := s.repo.ListFeatured(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list featured products")
	}
	return mapProducts(rows), nil
}

func (s *service) BySlug(ctx context.Context, slug string) (*ProductDTO, error) {
	slug = strings.TrimSpace(strings.ToLower(slug))
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	product, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	dto := FromModel(*product)
	return &dto, nil
}

// Find serves internal callers that need the raw row with variants loaded.
func (s *service) Find(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.repo.Find(ctx, id)
}

func (s *service) Variants(ctx context.Context, productID uuid.UUID) ([]VariantDTO, error) {
	rows, err := s.repo.ListVariants(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list variants")
	}
	out := make([]VariantDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, VariantFromModel(row))
	}
	return out, nil
}

func (s *service) CreateProduct(ctx context.Context, req CreateProductRequest) (*ProductDTO, error) {
	product := productFromRequest(req)
	product.ID = uuid.New()
	if err := s.repo.Create(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a product with that slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	dto := FromModel(*product)
	return &dto, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductDTO, error) {
	if _, err := s.repo.Find(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	product := productFromRequest(req)
	product.ID = id
	if err := s.repo.Update(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a product with that slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
	}

	fresh, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload product")
	}
	dto := FromModel(*fresh)
	return &dto, nil
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.Find(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete product")
	}
	return nil
}

func (s *service) CreateVariant(ctx context.Context, productID uuid.UUID, req CreateVariantRequest) (*VariantDTO, error) {
	if _, err := s.repo.Find(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	variant := variantFromRequest(req)
	variant.ID = uuid.New()
	variant.ProductID = productID
	if err := s.repo.CreateVariant(ctx, variant); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create variant")
	}
	dto := VariantFromModel(*variant)
	return &dto, nil
}

func (s *service) UpdateVariant(ctx context.Context, id uuid.UUID, req UpdateVariantRequest) (*VariantDTO, error) {
	existing, err := s.repo.FindVariant(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
	}

	variant := variantFromRequest(req)
	variant.ID = id
	variant.ProductID = existing.ProductID
	if err := s.repo.UpdateVariant(ctx, variant); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update variant")
	}
	dto := VariantFromModel(*variant)
	return &dto, nil
}

func (s *service) DeleteVariant(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindVariant(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
	}
	if err := s.repo.DeleteVariant(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete variant")
	}
	return nil
}

func mapProducts(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}

func productFromRequest(req CreateProductRequest) *models.Product {
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	return &models.Product{
		Name:              strings.TrimSpace(req.Name),
		Slug:              strings.TrimSpace(strings.ToLower(req.Slug)),
		Category:          req.Category,
		Description:       req.Description,
		ImageURL:          req.ImageURL,
		Price:             req.Price,
		SalePrice:         toNullDecimal(req.SalePrice),
		Stock:             req.Stock,
		HasVariants:       req.HasVariants,
		Featured:          req.Featured,
		IsActive:          isActive,
		SellAuthProductID: req.SellAuthProductID,
	}
}

func variantFromRequest(req CreateVariantRequest) *models.ProductVariant {
	return &models.ProductVariant{
		Name:              strings.TrimSpace(req.Name),
		Description:       req.Description,
		ImageURL:          req.ImageURL,
		Price:             req.Price,
		SalePrice:         toNullDecimal(req.SalePrice),
		Stock:             req.Stock,
		SortOrder:         req.SortOrder,
		SellAuthProductID: req.SellAuthProductID,
		SellAuthVariantID: req.SellAuthVariantID,
	}
}
