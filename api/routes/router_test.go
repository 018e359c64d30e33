package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/acctbay/storefront-backend/internal/auth"
	cartsvc "github.com/acctbay/storefront-backend/internal/cart"
	checkoutsvc "github.com/acctbay/storefront-backend/internal/checkout"
	ordersvc "github.com/acctbay/storefront-backend/internal/orders"
	productsvc "github.com/acctbay/storefront-backend/internal/products"
	reviewsvc "github.com/acctbay/storefront-backend/internal/reviews"
	statsvc "github.com/acctbay/storefront-backend/internal/stats"
	"github.com/acctbay/storefront-backend/pkg/config"
	"github.com/acctbay/storefront-backend/pkg/db/models"
	"github.com/acctbay/storefront-backend/pkg/enums"
	pkgerrors "github.com/acctbay/storefront-backend/pkg/errors"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubAuthService struct{}

func (stubAuthService) RequestCode(ctx context.Context, req auth.RequestCodeRequest) error {
	return nil
}

func (stubAuthService) VerifyCode(ctx context.Context, req auth.VerifyCodeRequest) (*auth.VerifyCodeResponse, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "invalid or expired code")
}

func (stubAuthService) SignOut(ctx context.Context, sess auth.Session) error { return nil }

func (stubAuthService) SessionFromToken(ctx context.Context, token string) (*auth.Session, error) {
	if token != "valid" {
		return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "invalid token")
	}
	return &auth.Session{UserID: uuid.New(), Email: "buyer@example.com", Role: enums.UserRoleCustomer}, nil
}

func (stubAuthService) Subscribe(fn func(auth.Transition)) func() {
	return func() {}
}

type stubProductService struct{}

func (stubProductService) List(ctx context.Context) ([]productsvc.ProductDTO, error) {
	return []productsvc.ProductDTO{}, nil
}

func (stubProductService) Featured(ctx context.Context) ([]productsvc.ProductDTO, error) {
	return []productsvc.ProductDTO{}, nil
}

func (stubProductService) BySlug(ctx context.Context, slug string) (*productsvc.ProductDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (stubProductService) Find(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (stubProductService) Variants(ctx context.Context, productID uuid.UUID) ([]productsvc.VariantDTO, error) {
	return nil, nil
}

func (stubProductService) CreateProduct(ctx context.Context, req productsvc.CreateProductRequest) (*productsvc.ProductDTO, error) {
	return nil, nil
}

func (stubProductService) UpdateProduct(ctx context.Context, id uuid.UUID, req productsvc.UpdateProductRequest) (*productsvc.ProductDTO, error) {
	return nil, nil
}

func (stubProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error { return nil }

func (stubProductService) CreateVariant(ctx context.Context, productID uuid.UUID, req productsvc.CreateVariantRequest) (*productsvc.VariantDTO, error) {
	return nil, nil
}

func (stubProductService) UpdateVariant(ctx context.Context, id uuid.UUID, req productsvc.UpdateVariantRequest) (*productsvc.VariantDTO, error) {
	return nil, nil
}

func (stubProductService) DeleteVariant(ctx context.Context, id uuid.UUID) error { return nil }

type stubCartService struct{}

func (stubCartService) Cart(ctx context.Context, sess auth.Session) (*cartsvc.CartDTO, error) {
	return &cartsvc.CartDTO{Items: []cartsvc.ItemDTO{}}, nil
}

func (stubCartService) Items(ctx context.Context, sess auth.Session) ([]models.CartItem, error) {
	return nil, nil
}

func (stubCartService) AddItem(ctx context.Context, sess auth.Session, req cartsvc.AddItemRequest) (*cartsvc.AddItemResponse, error) {
	return nil, nil
}

func (stubCartService) UpdateQuantity(ctx context.Context, sess auth.Session, itemID uuid.UUID, quantity int) (*cartsvc.CartDTO, error) {
	return nil, nil
}

func (stubCartService) RemoveItem(ctx context.Context, sess auth.Session, itemID uuid.UUID) (*cartsvc.CartDTO, error) {
	return nil, nil
}

func (stubCartService) Clear(ctx context.Context, sess auth.Session) error { return nil }

func (stubCartService) OnSessionTransition(ctx context.Context, t auth.Transition) {}

type stubCheckoutService struct{}

func (stubCheckoutService) BuyNow(ctx context.Context, sess auth.Session, req checkoutsvc.BuyNowRequest) (*checkoutsvc.Result, error) {
	return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "checkout gateway not configured")
}

func (stubCheckoutService) Checkout(ctx context.Context, sess auth.Session) (*checkoutsvc.Result, error) {
	return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "checkout gateway not configured")
}

type stubOrderService struct{}

func (stubOrderService) ListByUser(ctx context.Context, userID uuid.UUID) ([]ordersvc.OrderDTO, error) {
	return []ordersvc.OrderDTO{}, nil
}

func (stubOrderService) List(ctx context.Context, limit int) ([]ordersvc.OrderDTO, error) {
	return []ordersvc.OrderDTO{}, nil
}

func (stubOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, req ordersvc.UpdateStatusRequest) (*ordersvc.OrderDTO, error) {
	return nil, nil
}

type stubReviewService struct{}

func (stubReviewService) Submit(ctx context.Context, sess auth.Session, req reviewsvc.SubmitReviewRequest) (*reviewsvc.ReviewDTO, error) {
	return nil, nil
}

func (stubReviewService) List(ctx context.Context, limit int) ([]reviewsvc.ReviewDTO, error) {
	return []reviewsvc.ReviewDTO{}, nil
}

func (stubReviewService) ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]reviewsvc.ReviewDTO, error) {
	return []reviewsvc.ReviewDTO{}, nil
}

func (stubReviewService) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type stubSettingsService struct{}

func (stubSettingsService) All(ctx context.Context) map[string]string {
	return map[string]string{"site_name": "AcctBay"}
}

func (stubSettingsService) Get(ctx context.Context, key string) (string, error) { return "", nil }
func (stubSettingsService) Upsert(ctx context.Context, key, value string) error { return nil }
func (stubSettingsService) Delete(ctx context.Context, key string) error        { return nil }

type stubCounter struct{}

func (stubCounter) CountActive(ctx context.Context) (int64, error)    { return 0, nil }
func (stubCounter) CountCustomers(ctx context.Context) (int64, error) { return 0, nil }
func (stubCounter) Aggregate(ctx context.Context) (int64, float64, error) {
	return 0, 0, nil
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()

	statsService, err := statsvc.NewService(statsvc.ServiceParams{
		Products:  stubCounter{},
		Customers: stubCounter{},
		Reviews:   stubCounter{},
	})
	if err != nil {
		t.Fatalf("stats service: %v", err)
	}

	cfg := &config.Config{}
	cfg.App.Env = "test"

	return NewRouter(Deps{
		Config:   cfg,
		Logger:   nil,
		DB:       stubPinger{},
		Redis:    nil,
		Auth:     stubAuthService{},
		Products: stubProductService{},
		Cart:     stubCartService{},
		Checkout: stubCheckoutService{},
		Orders:   stubOrderService{},
		Reviews:  stubReviewService{},
		Settings: stubSettingsService{},
		Stats:    statsService,
	})
}

func TestRouterHealthLive(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRouterPublicRoutesOpen(t *testing.T) {
	router := testRouter(t)

	for _, path := range []string{"/api/v1/products", "/api/v1/reviews", "/api/v1/settings", "/api/v1/stats"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 on %s got %d", path, resp.Code)
		}
	}
}

func TestRouterCartRequiresAuth(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRouterCartWithToken(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer valid")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRouterAdminForbiddenForCustomer(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer valid")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}
