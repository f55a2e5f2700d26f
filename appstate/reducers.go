// Package appstate holds the cross-cutting per-user state (auth snapshot and
// notifications). Every transition is a pure reducer; Store only serializes
// dispatches.
package appstate

import (
	"time"

	"medprep-server/models"
)

// maxNotifications bounds the per-user notification list; the oldest are dropped.
const maxNotifications = 20

type AuthStatus string

const (
	AuthIdle    AuthStatus = "idle"
	AuthLoading AuthStatus = "loading"
	AuthReady   AuthStatus = "ready"
	AuthError   AuthStatus = "error"
)

type AuthState struct {
	Status   AuthStatus   `json:"status"`
	User     *models.User `json:"user,omitempty"`
	LoadedAt time.Time    `json:"loaded_at,omitempty"`
	Error    string       `json:"error,omitempty"`
}

type Notification struct {
	ID        string    `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// UserState is everything kept for one user.
type UserState struct {
	Auth          AuthState      `json:"auth"`
	Notifications []Notification `json:"notifications"`
}

// Action is a state transition request.
type Action interface {
	isAction()
}

type ProfileRequested struct{}

type ProfileLoaded struct {
	User models.User
	At   time.Time
}

type ProfileFailed struct {
	Err string
}

type LoggedOut struct{}

type NotificationPushed struct {
	Notification Notification
}

type NotificationDismissed struct {
	ID string
}

func (ProfileRequested) isAction()      {}
func (ProfileLoaded) isAction()         {}
func (ProfileFailed) isAction()         {}
func (LoggedOut) isAction()             {}
func (NotificationPushed) isAction()    {}
func (NotificationDismissed) isAction() {}

// ReduceAuth applies a to the auth slice. A failed refresh keeps the last good user.
func ReduceAuth(s AuthState, a Action) AuthState {
	switch a := a.(type) {
	case ProfileRequested:
		s.Status = AuthLoading
		s.Error = ""
	case ProfileLoaded:
		u := a.User
		return AuthState{Status: AuthReady, User: &u, LoadedAt: a.At}
	case ProfileFailed:
		s.Status = AuthError
		s.Error = a.Err
	case LoggedOut:
		return AuthState{Status: AuthIdle}
	}
	return s
}

// ReduceNotifications applies a to the notification list without mutating s.
func ReduceNotifications(s []Notification, a Action) []Notification {
	switch a := a.(type) {
	case NotificationPushed:
		out := make([]Notification, 0, len(s)+1)
		out = append(out, s...)
		out = append(out, a.Notification)
		if len(out) > maxNotifications {
			out = out[len(out)-maxNotifications:]
		}
		return out
	case NotificationDismissed:
		out := make([]Notification, 0, len(s))
		for _, n := range s {
			if n.ID != a.ID {
				out = append(out, n)
			}
		}
		return out
	case LoggedOut:
		return nil
	}
	return s
}

// Reduce applies a to every slice of the user state.
func Reduce(s UserState, a Action) UserState {
	return UserState{
		Auth:          ReduceAuth(s.Auth, a),
		Notifications: ReduceNotifications(s.Notifications, a),
	}
}
