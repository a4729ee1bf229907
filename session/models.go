package session

import "log/slog"

// User is the client-side representation of the signed-in driver.
type User struct {
	UserID string
	Email  string
	Name   string
	Role   string
}

// BackendUser mirrors the user record shape returned by the identity
// service.
type BackendUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// driverFromBackend maps a backend user record to the client-side User.
// The role is always set to "driver" no matter what the backend declares:
// this client only serves drivers.
func driverFromBackend(backend BackendUser) User {
	return User{
		UserID: backend.ID,
		Email:  backend.Email,
		Name:   backend.Name,
		Role:   "driver",
	}
}

// Credentials contains the driver's login form input.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LogValue keeps the password out of log output wherever Credentials are
// passed to a logger.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("email", c.Email),
		slog.String("password", "[REDACTED]"),
	)
}

// Snapshot is a point-in-time copy of the session state for callers to
// render from. Authenticated is true exactly when both User and Token are
// set.
type Snapshot struct {
	Authenticated bool
	User          *User
	Token         string
	Loading       bool
	Err           string
}

// Update carries the fields UpdateUser merges into the current user. Nil
// fields are left untouched.
type Update struct {
	Email *string
	Name  *string
}

type loginResponse struct {
	Message     string      `json:"message"`
	AccessToken string      `json:"accessToken"`
	User        BackendUser `json:"user"`
}

type validateResponse struct {
	Message string      `json:"message"`
	User    BackendUser `json:"user"`
}

type refreshResponse struct {
	Message     string      `json:"message"`
	AccessToken string      `json:"accessToken"`
	User        BackendUser `json:"user"`
}
