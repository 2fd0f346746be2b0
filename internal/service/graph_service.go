package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"chirpnet/internal/cache"
	"chirpnet/internal/middleware"
	"chirpnet/internal/models"
	"chirpnet/internal/observability"
	"chirpnet/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// toggleLockTTL bounds how long one toggle may hold its pair lock.
const toggleLockTTL = 5 * time.Second

// GraphService provides follow, suggestion and user search logic.
type GraphService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

// NewGraphService returns a new GraphService.
func NewGraphService(followRepo repository.FollowRepository, userRepo repository.UserRepository) *GraphService {
	return &GraphService{
		followRepo: followRepo,
		userRepo:   userRepo,
	}
}

// FollowUnfollow toggles the actor's follow of target and reports whether the
// actor follows target afterwards.
func (s *GraphService) FollowUnfollow(ctx context.Context, actorID, targetID uint) (following bool, err error) {
	ctx, span := observability.StartSpan(ctx, "GraphService", "FollowUnfollow",
		attribute.Int("actor.id", int(actorID)),
		attribute.Int("target.id", int(targetID)),
	)
	defer func() {
		observability.EndSpan(span, err)
		recordToggle("follow", following, err)
	}()

	if actorID == targetID {
		return false, models.NewValidationError("You can't follow/unfollow yourself")
	}

	err = runToggle(ctx, cache.PairLockKey("follow", actorID, targetID), func() error {
		var toggleErr error
		following, toggleErr = s.followRepo.Toggle(ctx, actorID, targetID)
		return toggleErr
	})
	return following, err
}

// SuggestedUsers lists users with no follow edge in either direction with the actor.
func (s *GraphService) SuggestedUsers(ctx context.Context, actorID uint) ([]models.User, error) {
	return s.userRepo.Suggested(ctx, actorID)
}

// SearchByUsername finds the user whose username equals query ignoring case.
// The actor never matches.
func (s *GraphService) SearchByUsername(ctx context.Context, query string, actorID uint) (*models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Username is required")
	}
	found, err := s.userRepo.FindByUsernameFold(ctx, query, actorID)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, models.NewNotFoundMessage("User not found")
	}
	found.Password = ""
	return found, nil
}

// runToggle runs fn under the pair lock for key.
func runToggle(ctx context.Context, key string, fn func() error) error {
	err := cache.WithLock(ctx, key, toggleLockTTL, fn)
	if errors.Is(err, cache.ErrLockBusy) {
		return models.NewConflictError("Another update is in progress, please retry")
	}
	return err
}

func recordToggle(relation string, on bool, err error) {
	result := "removed"
	switch {
	case err != nil:
		result = "error"
	case on:
		result = "added"
	}
	middleware.ToggleOperations.WithLabelValues(relation, result).Inc()
}
