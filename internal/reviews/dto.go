package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/acctbay/storefront-backend/pkg/db/models"
)

// SubmitReviewRequest creates a review. ProductID is optional; a review
// without one rates the store itself.
type SubmitReviewRequest struct {
	ProductID *uuid.UUID `json:"product_id,omitempty"`
	Author    string     `json:"author" validate:"required"`
	Rating    int        `json:"rating" validate:"required,min=1,max=5"`
	Comment   string     `json:"comment" validate:"required"`
}

// ReviewDTO is the API shape for a review.
type ReviewDTO struct {
	ID        uuid.UUID  `json:"id"`
	ProductID *uuid.UUID `json:"product_id,omitempty"`
	Author    string     `json:"author"`
	Rating    int        `json:"rating"`
	Comment   string     `json:"comment"`
	Verified  bool       `json:"verified"`
	CreatedAt time.Time  `json:"created_at"`
}

// FromModel maps a review row to its DTO.
func FromModel(review models.Review) ReviewDTO {
	return ReviewDTO{
		ID:        review.ID,
		ProductID: review.ProductID,
		Author:    review.Author,
		Rating:    review.Rating,
		Comment:   review.Comment,
		Verified:  review.Verified,
		CreatedAt: review.CreatedAt,
	}
}
