package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/acctbay/storefront-backend/internal/auth"
	reviewsvc "github.com/acctbay/storefront-backend/internal/reviews"
	pkgerrors "github.com/acctbay/storefront-backend/pkg/errors"
)

type stubReviewService struct {
	review  *reviewsvc.ReviewDTO
	reviews []reviewsvc.ReviewDTO
	err     error
}

func (s stubReviewService) Submit(ctx context.Context, sess auth.Session, req reviewsvc.SubmitReviewRequest) (*reviewsvc.ReviewDTO, error) {
	return s.review, s.err
}

func (s stubReviewService) List(ctx context.Context, limit int) ([]reviewsvc.ReviewDTO, error) {
	return s.reviews, s.err
}

func (s stubReviewService) ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]reviewsvc.ReviewDTO, error) {
	return s.reviews, s.err
}

func (s stubReviewService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.err
}

func TestReviewsListSuccess(t *testing.T) {
	svc := stubReviewService{reviews: []reviewsvc.ReviewDTO{{ID: uuid.New(), Author: "Sam", Rating: 5, Comment: "fast delivery"}}}
	handler := ReviewsList(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/reviews", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data []reviewsvc.ReviewDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 || envelope.Data[0].Author != "Sam" {
		t.Fatalf("unexpected payload: %+v", envelope.Data)
	}
}

func TestReviewsListRejectsBadLimit(t *testing.T) {
	handler := ReviewsList(stubReviewService{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/reviews?limit=0", nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestReviewSubmitCreated(t *testing.T) {
	svc := stubReviewService{review: &reviewsvc.ReviewDTO{ID: uuid.New(), Author: "Sam", Rating: 5, Comment: "great", Verified: true}}
	handler := ReviewSubmit(svc, nil)

	body := `{"author":"Sam","rating":5,"comment":"great"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/reviews", body))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
}

func TestReviewSubmitRequiresSession(t *testing.T) {
	handler := ReviewSubmit(stubReviewService{}, nil)

	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", nil)
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestProductReviewsNotFound(t *testing.T) {
	svc := stubReviewService{err: pkgerrors.New(pkgerrors.CodeNotFound, "product not found")}
	handler := ProductReviews(svc, nil)

	productID := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+productID+"/reviews", nil)
	req = withURLParam(req, "productId", productID)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
