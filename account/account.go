// Package account loads user profiles from the exam backend and caches them in appstate.
package account

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"medprep-server/appstate"
	"medprep-server/logger"
	"medprep-server/models"
)

// ProfileFetcher is the upstream profile endpoint.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, token string) (*models.User, error)
}

type Service struct {
	api   ProfileFetcher
	state *appstate.Store
	ttl   time.Duration
	log   *logger.Logger
	group singleflight.Group
	now   func() time.Time
}

func NewService(api ProfileFetcher, state *appstate.Store, ttl time.Duration, log *logger.Logger) *Service {
	return &Service{api: api, state: state, ttl: ttl, log: log, now: time.Now}
}

// Profile returns the cached profile of userID while it is fresh, otherwise
// fetches it. Concurrent fetches for the same user share one upstream call.
func (s *Service) Profile(ctx context.Context, userID, token string) (*models.User, error) {
	if u, loadedAt, ok := s.state.CachedUser(userID); ok && s.now().Sub(loadedAt) < s.ttl {
		return u, nil
	}
	return s.Refresh(ctx, userID, token)
}

// Refresh always reloads the profile, e.g. after a successful payment.
func (s *Service) Refresh(ctx context.Context, userID, token string) (*models.User, error) {
	v, err, _ := s.group.Do(userID, func() (interface{}, error) {
		s.state.Dispatch(userID, appstate.ProfileRequested{})
		u, err := s.api.FetchProfile(ctx, token)
		if err != nil {
			s.state.Dispatch(userID, appstate.ProfileFailed{Err: err.Error()})
			return nil, err
		}
		if u.UserID != userID {
			err := fmt.Errorf("profile belongs to %q, token subject is %q", u.UserID, userID)
			s.state.Dispatch(userID, appstate.ProfileFailed{Err: err.Error()})
			return nil, err
		}
		s.state.Dispatch(userID, appstate.ProfileLoaded{User: *u, At: s.now()})
		return u, nil
	})
	if err != nil {
		s.log.Warn("profile fetch failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	u := *v.(*models.User)
	return &u, nil
}

// Forget drops everything cached for the user.
func (s *Service) Forget(userID string) {
	s.state.Dispatch(userID, appstate.LoggedOut{})
}
