package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/acctbay/storefront-backend/internal/auth"
	"github.com/acctbay/storefront-backend/pkg/config"
	"github.com/acctbay/storefront-backend/pkg/db/models"
	"github.com/acctbay/storefront-backend/pkg/enums"
	pkgerrors "github.com/acctbay/storefront-backend/pkg/errors"
	"github.com/acctbay/storefront-backend/pkg/logger"
	"github.com/acctbay/storefront-backend/pkg/metrics"
	"github.com/acctbay/storefront-backend/pkg/sellauth"
)

// Result is the hand-off returned to the storefront once the hosted checkout
// accepted the cart.
type Result struct {
	URL       string `json:"url"`
	InvoiceID string `json:"invoice_id,omitempty"`
}

// BuyNowRequest opens the hosted checkout for a single catalog item without
// touching the cart.
type BuyNowRequest struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity"`
}

// Service opens the hosted checkout for the caller's cart or a single item.
type Service interface {
	Checkout(ctx context.Context, sess auth.Session) (*Result, error)
	BuyNow(ctx context.Context, sess auth.Session, req BuyNowRequest) (*Result, error)
}

type cartReader interface {
	Items(ctx context.Context, sess auth.Session) ([]models.CartItem, error)
	Clear(ctx context.Context, sess auth.Session) error
}

type productLoader interface {
	Find(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type checkoutGateway interface {
	Configured() bool
	EnsureReady(ctx context.Context) error
	Checkout(ctx context.Context, items []sellauth.CheckoutItem, modal bool) (*sellauth.CheckoutResult, error)
	OpenCheckout(ctx context.Context, item sellauth.CheckoutItem) (*sellauth.CheckoutResult, error)
}

type orderWriter interface {
	Create(ctx context.Context, order *models.Order) error
}

type service struct {
	cart     cartReader
	products productLoader
	gateway  checkoutGateway
	orders   orderWriter
	cfg      config.SellAuthConfig
	logg     *logger.Logger
	metrics  *metrics.StorefrontMetrics

	// after is time.After unless a test swaps it out.
	after func(time.Duration) <-chan time.Time
}

// ServiceParams bundles the dependencies required to build a checkout service.
type ServiceParams struct {
	Cart     cartReader
	Products productLoader
	Gateway  checkoutGateway
	Orders   orderWriter
	Config   config.SellAuthConfig
	Logger   *logger.Logger
	Metrics  *metrics.StorefrontMetrics
	After    func(time.Duration) <-chan time.Time
}

// NewService constructs a checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Cart == nil {
		return nil, fmt.Errorf("cart reader is required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("checkout gateway is required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order writer is required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product loader is required")
	}
	after := params.After
	if after == nil {
		after = time.After
	}
	return &service{
		cart:     params.Cart,
		products: params.Products,
		gateway:  params.Gateway,
		orders:   params.Orders,
		cfg:      params.Config,
		logg:     params.Logger,
		metrics:  params.Metrics,
		after:    after,
	}, nil
}

func (s *service) Checkout(ctx context.Context, sess auth.Session) (*Result, error) {
	if sess.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "sign in to check out")
	}
	if !s.gateway.Configured() {
		s.count("not_configured")
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "checkout is not configured")
	}

	items, err := s.cart.Items(ctx, sess)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		s.count("empty_cart")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	lines, snapshots := mapLines(items)
	if len(lines) == 0 {
		// Nothing in the cart is known to the payment provider, so opening
		// the widget would sell nothing.
		s.count("unmapped")
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "no items in the cart can be purchased right now")
	}

	start := time.Now()
	if err := s.gateway.EnsureReady(ctx); err != nil {
		s.observeLoad(start, "error")
		s.count("widget_unavailable")
		return nil, err
	}
	s.observeLoad(start, "ok")

	opened, err := s.gateway.Checkout(ctx, lines, true)
	if err != nil {
		s.count("rejected")
		return nil, err
	}
	s.count("opened")

	s.settleLater(ctx, sess, snapshots, opened, true)

	return &Result{URL: opened.URL, InvoiceID: opened.InvoiceID}, nil
}

// BuyNow opens the hosted checkout for one catalog item, bypassing the cart.
// The cart is left untouched; only the order snapshot is recorded at settle.
func (s *service) BuyNow(ctx context.Context, sess auth.Session, req BuyNowRequest) (*Result, error) {
	if sess.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "sign in to check out")
	}
	if !s.gateway.Configured() {
		s.count("not_configured")
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "checkout is not configured")
	}
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.Find(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	item := models.CartItem{
		ProductID: product.ID,
		Quantity:  quantity,
		Product:   product,
	}
	if req.VariantID != nil {
		for i := range product.Variants {
			if product.Variants[i].ID == *req.VariantID {
				item.VariantID = req.VariantID
				item.Variant = &product.Variants[i]
				break
			}
		}
		if item.Variant == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant does not belong to this product")
		}
	}

	lines, snapshots := mapLines([]models.CartItem{item})
	if len(lines) == 0 {
		s.count("unmapped")
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "this item cannot be purchased right now")
	}

	start := time.Now()
	opened, err := s.gateway.OpenCheckout(ctx, lines[0])
	if err != nil {
		s.observeLoad(start, "error")
		s.count("rejected")
		return nil, err
	}
	s.observeLoad(start, "ok")
	s.count("opened")

	s.settleLater(ctx, sess, snapshots, opened, false)

	return &Result{URL: opened.URL, InvoiceID: opened.InvoiceID}, nil
}

// settleLater records the order snapshot, and for cart checkouts clears the
// cart, shortly after the hand-off. The delay gives the embed time to read the
// cart it was opened with; the work survives the request context ending.
func (s *service) settleLater(ctx context.Context, sess auth.Session, snapshots []models.OrderItemSnapshot, opened *sellauth.CheckoutResult, clearCart bool) {
	detached := context.WithoutCancel(ctx)

	go func() {
		<-s.after(s.cfg.SettleDelay)

		var settleErr error
		if clearCart {
			if err := s.cart.Clear(detached, sess); err != nil {
				settleErr = multierr.Append(settleErr, fmt.Errorf("clear cart: %w", err))
			}
		}

		order := orderFromSnapshots(sess.UserID, snapshots, opened)
		if err := s.orders.Create(detached, order); err != nil {
			settleErr = multierr.Append(settleErr, fmt.Errorf("record order: %w", err))
		}

		if settleErr != nil && s.logg != nil {
			s.logg.Error(detached, "checkout settle incomplete", settleErr)
		}
	}()
}

// mapLines translates cart lines to provider lines. Provider identifiers
// resolve variant-first; lines with no identifier at all are dropped.
func mapLines(items []models.CartItem) ([]sellauth.CheckoutItem, []models.OrderItemSnapshot) {
	lines := make([]sellauth.CheckoutItem, 0, len(items))
	snapshots := make([]models.OrderItemSnapshot, 0, len(items))

	for _, item := range items {
		var productRef *int64
		var variantRef *int64
		if item.Variant != nil {
			if item.Variant.SellAuthProductID != nil {
				productRef = item.Variant.SellAuthProductID
			}
			variantRef = item.Variant.SellAuthVariantID
		}
		if productRef == nil && item.Product != nil {
			productRef = item.Product.SellAuthProductID
		}
		if productRef == nil {
			continue
		}

		lines = append(lines, sellauth.CheckoutItem{
			ProductID: *productRef,
			VariantID: variantRef,
			Quantity:  item.Quantity,
		})
		snapshots = append(snapshots, snapshotLine(item, *productRef, variantRef))
	}
	return lines, snapshots
}

func snapshotLine(item models.CartItem, productRef int64, variantRef *int64) models.OrderItemSnapshot {
	snapshot := models.OrderItemSnapshot{
		ProductID:         item.ProductID,
		VariantID:         item.VariantID,
		Quantity:          item.Quantity,
		UnitPrice:         item.UnitPrice(),
		SellAuthProductID: productRef,
		SellAuthVariantID: variantRef,
	}
	if item.Product != nil {
		snapshot.Name = item.Product.Name
	}
	if item.Variant != nil && snapshot.Name != "" {
		snapshot.Name = snapshot.Name + " - " + item.Variant.Name
	}
	return snapshot
}

func orderFromSnapshots(userID uuid.UUID, snapshots []models.OrderItemSnapshot, opened *sellauth.CheckoutResult) *models.Order {
	order := &models.Order{
		ID:     uuid.New(),
		UserID: userID,
		Status: enums.OrderStatusPending,
		Items:  snapshots,
	}
	for _, snapshot := range snapshots {
		order.ItemCount += snapshot.Quantity
		order.TotalPrice = order.TotalPrice.Add(
			snapshot.UnitPrice.Mul(decimal.NewFromInt(int64(snapshot.Quantity))))
	}
	if opened != nil && opened.InvoiceID != "" {
		ref := opened.InvoiceID
		order.CheckoutRef = &ref
	}
	return order
}

func (s *service) count(outcome string) {
	if s.metrics != nil {
		s.metrics.IncCheckoutAttempt(outcome)
	}
}

func (s *service) observeLoad(start time.Time, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveWidgetLoad(outcome, time.Since(start))
	}
}
