package client

import (
	"context"

	"go-sitter/internal/features/booking"
)

// History summarizes a client's booking record for rule conditions and
// waitlist priority.
type History struct {
	CompletedCount int64   `json:"completed_count"`
	TotalCount     int64   `json:"total_count"`
	AverageRating  float64 `json:"average_rating"`
}

type HistoryProvider interface {
	History(ctx context.Context, clientID string) (History, error)
}

type HistoryService struct {
	Bookings booking.Repository
	Ratings  RatingRepository
}

func NewHistoryService(bookings booking.Repository, ratings RatingRepository) HistoryProvider {
	return &HistoryService{Bookings: bookings, Ratings: ratings}
}

func (s *HistoryService) History(ctx context.Context, clientID string) (History, error) {
	completed, err := s.Bookings.Count(ctx, booking.Query{
		ClientID: clientID,
		Statuses: []booking.Status{booking.StatusCompleted},
	})
	if err != nil {
		return History{}, err
	}
	total, err := s.Bookings.Count(ctx, booking.Query{ClientID: clientID})
	if err != nil {
		return History{}, err
	}
	avg, err := s.Ratings.AverageForClient(ctx, clientID)
	if err != nil {
		return History{}, err
	}
	return History{
		CompletedCount: completed,
		TotalCount:     total,
		AverageRating:  avg,
	}, nil
}
