package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/acctbay/storefront-backend/internal/auth"
	"github.com/acctbay/storefront-backend/pkg/db/models"
	pkgerrors "github.com/acctbay/storefront-backend/pkg/errors"
)

// Service defines the behavior needed by the cart controller and checkout.
type Service interface {
	Cart(ctx context.Context, sess auth.Session) (*CartDTO, error)
	Items(ctx context.Context, sess auth.Session) ([]models.CartItem, error)
	AddItem(ctx context.Context, sess auth.Session, req AddItemRequest) (*AddItemResponse, error)
	UpdateQuantity(ctx context.Context, sess auth.Session, itemID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, sess auth.Session, itemID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, sess auth.Session) error
	OnSessionTransition(ctx context.Context, t auth.Transition)
}

type cartRepo interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	Create(ctx context.Context, item *models.CartItem) error
	UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type productLoader interface {
	Find(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo     cartRepo
	products productLoader

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
	cache map[uuid.UUID][]models.CartItem
}

// ServiceParams bundles the dependencies required to build a cart service.
type ServiceParams struct {
	Repo     cartRepo
	Products productLoader
}

// NewService constructs a cart service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository is required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product loader is required")
	}
	return &service{
		repo:     params.Repo,
		products: params.Products,
		locks:    make(map[uuid.UUID]*sync.Mutex),
		cache:    make(map[uuid.UUID][]models.CartItem),
	}, nil
}

// userLock serializes all mutations and reloads for one user so the cache has
// a single writer per cart.
func (s *service) userLock(userID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

func requireUser(sess auth.Session) (uuid.UUID, error) {
	if sess.UserID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "sign in to use the cart")
	}
	return sess.UserID, nil
}

func (s *service) Cart(ctx context.Context, sess auth.Session) (*CartDTO, error) {
	items, err := s.Items(ctx, sess)
	if err != nil {
		return nil, err
	}
	dto := cartFromModels(items)
	return &dto, nil
}

func (s *service) Items(ctx context.Context, sess auth.Session) ([]models.CartItem, error) {
	userID, err := requireUser(sess)
	if err != nil {
		return nil, err
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if cached, ok := s.cachedItems(userID); ok {
		return cached, nil
	}
	return s.reload(ctx, userID)
}

func (s *service) AddItem(ctx context.Context, sess auth.Session, req AddItemRequest) (*AddItemResponse, error) {
	userID, err := requireUser(sess)
	if err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.Find(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if req.VariantID != nil && !variantBelongs(product, *req.VariantID) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant does not belong to product")
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	items, err := s.reload(ctx, userID)
	if err != nil {
		return nil, err
	}

	merged := false
	if existing := findLine(items, req.ProductID, req.VariantID); existing != nil {
		if err := s.repo.UpdateQuantity(ctx, existing.ID, existing.Quantity+req.Quantity); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "merge cart line")
		}
		merged = true
	} else {
		line := &models.CartItem{
			ID:        uuid.New(),
			UserID:    userID,
			ProductID: req.ProductID,
			VariantID: req.VariantID,
			Quantity:  req.Quantity,
		}
		if err := s.repo.Create(ctx, line); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart line")
		}
	}

	items, err = s.reload(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &AddItemResponse{Merged: merged, Cart: cartFromModels(items)}, nil
}

func (s *service) UpdateQuantity(ctx context.Context, sess auth.Session, itemID uuid.UUID, quantity int) (*CartDTO, error) {
	userID, err := requireUser(sess)
	if err != nil {
		return nil, err
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	items, err := s.reload(ctx, userID)
	if err != nil {
		return nil, err
	}
	line := findByID(items, itemID)
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}

	if quantity <= 0 {
		if err := s.repo.Delete(ctx, line.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart line")
		}
	} else if err := s.repo.UpdateQuantity(ctx, line.ID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
	}

	items, err = s.reload(ctx, userID)
	if err != nil {
		return nil, err
	}
	dto := cartFromModels(items)
	return &dto, nil
}

func (s *service) RemoveItem(ctx context.Context, sess auth.Session, itemID uuid.UUID) (*CartDTO, error) {
	userID, err := requireUser(sess)
	if err != nil {
		return nil, err
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	items, err := s.reload(ctx, userID)
	if err != nil {
		return nil, err
	}
	line := findByID(items, itemID)
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	if err := s.repo.Delete(ctx, line.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart line")
	}

	items, err = s.reload(ctx, userID)
	if err != nil {
		return nil, err
	}
	dto := cartFromModels(items)
	return &dto, nil
}

func (s *service) Clear(ctx context.Context, sess auth.Session) error {
	userID, err := requireUser(sess)
	if err != nil {
		return err
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	_, err = s.reload(ctx, userID)
	return err
}

// OnSessionTransition reacts to a session change. Sign-out drops the user's
// cached cart synchronously without touching storage; sign-in warms the cache
// so the first read after login is served locally.
func (s *service) OnSessionTransition(ctx context.Context, t auth.Transition) {
	if t.UserID == uuid.Nil {
		return
	}
	lock := s.userLock(t.UserID)
	lock.Lock()
	defer lock.Unlock()

	if t.Session == nil {
		s.mu.Lock()
		delete(s.cache, t.UserID)
		s.mu.Unlock()
		return
	}
	// Warm failures are harmless; the next read reloads.
	_, _ = s.reload(ctx, t.UserID)
}

// reload pulls the cart from the repository and refreshes the cache. Callers
// must hold the user lock.
func (s *service) reload(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	s.mu.Lock()
	s.cache[userID] = items
	s.mu.Unlock()
	return items, nil
}

func (s *service) cachedItems(userID uuid.UUID) ([]models.CartItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.cache[userID]
	return items, ok
}

func findLine(items []models.CartItem, productID uuid.UUID, variantID *uuid.UUID) *models.CartItem {
	for i := range items {
		item := &items[i]
		if item.ProductID != productID {
			continue
		}
		if variantID == nil && item.VariantID == nil {
			return item
		}
		if variantID != nil && item.VariantID != nil && *variantID == *item.VariantID {
			return item
		}
	}
	return nil
}

func findByID(items []models.CartItem, id uuid.UUID) *models.CartItem {
	for i := range items {
		if items[i].ID == id {
			return &items[i]
		}
	}
	return nil
}

func variantBelongs(product *models.Product, variantID uuid.UUID) bool {
	if product == nil {
		return false
	}
	for _, variant := range product.Variants {
		if variant.ID == variantID {
			return true
		}
	}
	return false
}
