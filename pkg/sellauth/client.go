package sellauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/acctbay/storefront-backend/pkg/config"
	pkgerrors "github.com/acctbay/storefront-backend/pkg/errors"
	"github.com/acctbay/storefront-backend/pkg/logger"
)

var (
	errLoggerRequired = errors.New("sellauth logger is required")
	errNotReady       = errors.New("sellauth embed not ready")
)

// CheckoutItem is one payable line handed to the hosted checkout.
type CheckoutItem struct {
	ProductID int64  `json:"productId"`
	VariantID *int64 `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity"`
}

// CheckoutResult is the hosted checkout hand-off returned by the API.
type CheckoutResult struct {
	URL       string `json:"url"`
	InvoiceID string `json:"invoice_id"`
}

type loadState struct {
	done chan struct{}
	err  error
}

// Client wraps the SellAuth embed readiness handshake and checkout API. The
// embed script has to be fetched and the shop endpoint polled before any
// checkout can be opened; concurrent callers share a single in-flight load.
type Client struct {
	cfg        config.SellAuthConfig
	httpClient *http.Client
	logger     *logger.Logger

	mu       sync.Mutex
	ready    bool
	fetched  bool
	inflight *loadState
}

// NewClient initializes the SellAuth wrapper.
func NewClient(ctx context.Context, cfg config.SellAuthConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.ScriptTimeout <= 0 {
		cfg.ScriptTimeout = 5 * time.Second
	}
	if cfg.ExistingScriptTimeout <= 0 {
		cfg.ExistingScriptTimeout = 10 * time.Second
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.ExistingScriptTimeout},
		logger:     logg,
	}

	logg.Info(ctx, "sellauth client initialized")
	return c, nil
}

// Configured reports whether a usable shop ID is present.
func (c *Client) Configured() bool {
	if c == nil {
		return false
	}
	return c.cfg.Configured()
}

// EnsureReady fetches the embed script and polls the shop endpoint until the
// hosted checkout answers. Repeated calls after success return immediately,
// and concurrent callers wait on the same load instead of starting their own.
func (c *Client) EnsureReady(ctx context.Context) error {
	c.mu.Lock()
	if c.ready {
		c.mu.Unlock()
		return nil
	}
	if c.inflight != nil {
		st := c.inflight
		c.mu.Unlock()
		select {
		case <-st.done:
			return st.err
		case <-ctx.Done():
			return pkgerrors.Wrap(pkgerrors.CodeWidgetTimeout, ctx.Err(), "waiting for checkout embed").
				WithDetails(c.fallbackDetails())
		}
	}

	st := &loadState{done: make(chan struct{})}
	c.inflight = st
	// A prior fetch means the script is already cached downstream, so the
	// poll gets the longer deadline.
	timeout := c.cfg.ScriptTimeout
	if c.fetched {
		timeout = c.cfg.ExistingScriptTimeout
	}
	c.mu.Unlock()

	err := c.load(ctx, timeout)

	c.mu.Lock()
	st.err = err
	c.inflight = nil
	c.fetched = true
	if err == nil {
		c.ready = true
	}
	c.mu.Unlock()
	close(st.done)

	return err
}

func (c *Client) load(ctx context.Context, timeout time.Duration) error {
	start := time.Now()
	c.log(ctx, "request", "load_embed", map[string]any{"script_url": c.cfg.ScriptURL})

	if err := c.fetchScript(ctx); err != nil {
		c.log(ctx, "error", "load_embed", map[string]any{"error": err.Error()})
		return pkgerrors.Wrap(pkgerrors.CodeWidgetLoad, err, "fetching checkout embed script").
			WithDetails(c.fallbackDetails())
	}

	backoff := retry.WithMaxDuration(timeout, retry.NewConstant(c.cfg.PollInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if probeErr := c.probe(ctx); probeErr != nil {
			return retry.RetryableError(errNotReady)
		}
		return nil
	})
	if err != nil {
		c.log(ctx, "error", "load_embed", map[string]any{"error": err.Error(), "waited": time.Since(start).String()})
		return pkgerrors.Wrap(pkgerrors.CodeWidgetTimeout, err, "checkout embed did not become ready").
			WithDetails(c.fallbackDetails())
	}

	c.log(ctx, "response", "load_embed", map[string]any{"waited": time.Since(start).String()})
	return nil
}

func (c *Client) fetchScript(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ScriptURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embed script returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) probe(ctx context.Context) error {
	url := fmt.Sprintf("%s/v1/shops/%d", strings.TrimRight(c.cfg.APIBaseURL, "/"), c.cfg.ShopID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("shop endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// OpenCheckout hands a single item to the hosted checkout. The buy-now path
// runs the readiness handshake itself and opens full-page rather than modal.
func (c *Client) OpenCheckout(ctx context.Context, item CheckoutItem) (*CheckoutResult, error) {
	if err := c.EnsureReady(ctx); err != nil {
		return nil, err
	}
	return c.Checkout(ctx, []CheckoutItem{item}, false)
}

// Checkout opens the hosted checkout for the provided items. Callers are
// expected to have run EnsureReady.
func (c *Client) Checkout(ctx context.Context, items []CheckoutItem, modal bool) (*CheckoutResult, error) {
	if !c.Configured() {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "checkout shop is not configured")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "no payable items for checkout")
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout quantity must be positive")
		}
	}

	body := struct {
		Cart  []CheckoutItem `json:"cart"`
		Modal bool           `json:"modal"`
	}{Cart: items, Modal: modal}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding checkout payload")
	}

	url := fmt.Sprintf("%s/v1/shops/%d/checkout", strings.TrimRight(c.cfg.APIBaseURL, "/"), c.cfg.ShopID)
	c.log(ctx, "request", "checkout", map[string]any{"items": len(items)})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building checkout request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log(ctx, "error", "checkout", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "checkout request failed").
			WithDetails(c.fallbackDetails())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.log(ctx, "error", "checkout", map[string]any{"status": resp.StatusCode, "error": fmt.Sprintf("checkout returned status %d", resp.StatusCode)})
		return nil, pkgerrors.Wrap(
			domainCodeForStatus(resp.StatusCode),
			fmt.Errorf("checkout returned status %d", resp.StatusCode),
			"checkout rejected",
		).WithDetails(c.fallbackDetails())
	}

	var result CheckoutResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decoding checkout response")
	}

	c.log(ctx, "response", "checkout", map[string]any{"invoice_id": result.InvoiceID})
	return &result, nil
}

func (c *Client) fallbackDetails() map[string]any {
	if strings.TrimSpace(c.cfg.FallbackURL) == "" {
		return nil
	}
	return map[string]any{"fallback_url": c.cfg.FallbackURL}
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("sellauth %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("sellauth %s", phase))
	}
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeNotAuthenticated
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeGateway
	}
}
