package feedback

import (
	"context"

	"github.com/PabloGalante/serviceai-agent/internal/domain"
)

const defaultLimit = 20

// Service holds the logic of reading submitted feedback.
type Service struct {
	data domain.BusinessData
}

// NewService creates a feedback service from the business backend.
func NewService(data domain.BusinessData) *Service {
	return &Service{
		data: data,
	}
}

// UserFeedback returns the last `limit` feedback entries of a user, oldest
// first. If limit <= 0, a reasonable default value is used.
func (s *Service) UserFeedback(
	ctx context.Context,
	userID domain.UserID,
	limit int,
) ([]domain.Feedback, error) {

	if s.data == nil {
		return []domain.Feedback{}, nil
	}

	if limit <= 0 {
		limit = defaultLimit
	}

	return s.data.ListFeedback(ctx, userID, limit)
}

// Summary aggregates the feedback of one user.
type Summary struct {
	Count         int     `json:"count"`
	AverageRating float64 `json:"average_rating"`
}

func Summarize(entries []domain.Feedback) Summary {
	if len(entries) == 0 {
		return Summary{}
	}
	total := 0
	for _, fb := range entries {
		total += fb.Rating
	}
	return Summary{Count: len(entries), AverageRating: float64(total) / float64(len(entries))}
}
