package service

import (
	"context"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/observability"
	"skillswap/internal/repository"
)

// ComputeRating averages the feedback userID received across the given swaps.
// Only completed swaps count; a swap's rating about userID is the one its counterpart left.
func ComputeRating(userID uint, swaps []models.Swap) models.Rating {
	var sum, count int
	for i := range swaps {
		swap := &swaps[i]
		if swap.Status != models.SwapStatusCompleted || !swap.IsParticipant(userID) {
			continue
		}
		if swap.RequesterID == userID && swap.Feedback.ResponderFeedback.Present() {
			sum += swap.Feedback.ResponderFeedback.Rating
			count++
		}
		if swap.ResponderID == userID && swap.Feedback.RequesterFeedback.Present() {
			sum += swap.Feedback.RequesterFeedback.Rating
			count++
		}
	}
	if count == 0 {
		return models.Rating{}
	}
	return models.Rating{Average: float64(sum) / float64(count), Count: count}
}

// RatingAggregator rebuilds a user's rating from scratch.
type RatingAggregator struct{}

// Recompute scans userID's completed swaps through repos and overwrites both rating fields.
// Pass transaction-bound repositories to make the recompute atomic with the write that triggered it.
func (RatingAggregator) Recompute(ctx context.Context, repos repository.Repositories, userID uint) (models.Rating, error) {
	start := time.Now()
	defer observability.ObserveSince(observability.RatingRecomputeLatency, start)

	swaps, err := repos.Swaps.CompletedForUser(ctx, userID)
	if err != nil {
		return models.Rating{}, err
	}
	rating := ComputeRating(userID, swaps)
	if err := repos.Users.UpdateRating(ctx, userID, rating); err != nil {
		return models.Rating{}, err
	}
	return rating, nil
}

// RecomputeAll rebuilds every user's rating, one transaction per user. It returns the number
// of users processed.
func (a RatingAggregator) RecomputeAll(ctx context.Context, store Transactor) (int, error) {
	processed := 0
	for pageNumber := 1; ; pageNumber++ {
		users, _, err := store.Repositories().Users.FindMany(ctx, repository.UserFilter{},
			repository.Page{Number: pageNumber, Size: repository.MaxPageSize})
		if err != nil {
			return processed, err
		}
		for _, user := range users {
			err := store.WithinTransaction(ctx, func(tx repository.Repositories) error {
				_, err := a.Recompute(ctx, tx, user.ID)
				return err
			})
			if err != nil {
				return processed, err
			}
			processed++
		}
		if len(users) < repository.MaxPageSize {
			return processed, nil
		}
	}
}
