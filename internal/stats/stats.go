package stats

import (
	"context"
	"fmt"
	"math"

	"github.com/acctbay/storefront-backend/pkg/logger"
)

// SiteStats is the public aggregate served on the storefront landing page.
type SiteStats struct {
	TotalProducts  int64   `json:"total_products"`
	TotalCustomers int64   `json:"total_customers"`
	TotalReviews   int64   `json:"total_reviews"`
	AvgRating      float64 `json:"avg_rating"`
}

type productCounter interface {
	CountActive(ctx context.Context) (int64, error)
}

type customerCounter interface {
	CountCustomers(ctx context.Context) (int64, error)
}

type reviewAggregator interface {
	Aggregate(ctx context.Context) (int64, float64, error)
}

// Service computes the site-wide aggregate counts.
type Service struct {
	products  productCounter
	customers customerCounter
	reviews   reviewAggregator
	logg      *logger.Logger
}

// ServiceParams bundles the dependencies required to build a stats service.
type ServiceParams struct {
	Products  productCounter
	Customers customerCounter
	Reviews   reviewAggregator
	Logger    *logger.Logger
}

// NewService constructs a stats service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Products == nil {
		return nil, fmt.Errorf("product counter is required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer counter is required")
	}
	if params.Reviews == nil {
		return nil, fmt.Errorf("review aggregator is required")
	}
	return &Service{
		products:  params.Products,
		customers: params.Customers,
		reviews:   params.Reviews,
		logg:      params.Logger,
	}, nil
}

// Site returns the aggregate counts. Each source degrades to zero on failure
// so the landing page always renders.
func (s *Service) Site(ctx context.Context) SiteStats {
	var stats SiteStats

	if n, err := s.products.CountActive(ctx); err != nil {
		s.warn(ctx, "product count failed", err)
	} else {
		stats.TotalProducts = n
	}

	if n, err := s.customers.CountCustomers(ctx); err != nil {
		s.warn(ctx, "customer count failed", err)
	} else {
		stats.TotalCustomers = n
	}

	if total, avg, err := s.reviews.Aggregate(ctx); err != nil {
		s.warn(ctx, "review aggregate failed", err)
	} else {
		stats.TotalReviews = total
		stats.AvgRating = math.Round(avg*10) / 10
	}

	return stats
}

func (s *Service) warn(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Warn(ctx, fmt.Sprintf("%s: %v", msg, err))
	}
}
