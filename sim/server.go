// Package sim is an in-memory stand-in for the identity and delivery
// services, close enough to the production API for local development and
// end-to-end tests: real JWTs, a refresh cookie, bcrypt credentials, and
// server-side enforcement of the delivery lifecycle.
package sim

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"driverapp/delivery"
)

// Config holds sandbox settings.
type Config struct {
	// JWTSecret signs access tokens. Defaults to a fixed dev secret.
	JWTSecret string
	// AccessTokenTTL bounds minted bearer tokens. Defaults to 15 minutes;
	// a negative value mints already-expired tokens.
	AccessTokenTTL time.Duration
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

type account struct {
	ID           string
	Email        string
	Name         string
	Role         string
	PasswordHash []byte
}

// Server holds the sandbox state behind both services' routes.
type Server struct {
	engine *gin.Engine
	secret []byte
	ttl    time.Duration
	logger *slog.Logger

	mu            sync.Mutex
	accounts      map[string]*account // by email
	refreshTokens map[string]string   // refresh token -> account ID
	deliveries    map[string]*delivery.Delivery
	available     map[string]bool // driver ID -> accepting assignments
	completed     map[string]int  // driver ID -> completions
}

// New creates a sandbox server with empty state. Seed it with AddDriver
// and AddDelivery before pointing a client at Handler.
func New(config Config) *Server {
	secret := config.JWTSecret
	if secret == "" {
		secret = "driverapp-sandbox-secret"
	}
	ttl := config.AccessTokenTTL
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:        gin.New(),
		secret:        []byte(secret),
		ttl:           ttl,
		logger:        logger,
		accounts:      make(map[string]*account),
		refreshTokens: make(map[string]string),
		deliveries:    make(map[string]*delivery.Delivery),
		available:     make(map[string]bool),
		completed:     make(map[string]int),
	}
	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	auth := s.engine.Group("/auth")
	{
		auth.POST("/login/driver", s.handleLogin)
		auth.POST("/validate", s.handleValidate)
		auth.POST("/refresh", s.handleRefresh)
		auth.POST("/logout", s.handleLogout)
	}

	authed := s.engine.Group("/", s.requireBearer)
	{
		authed.GET("/delivery", s.handleList)
		authed.GET("/delivery/:id/details", s.handleDetails)
		authed.POST("/delivery/:id/accept", s.handleAccept)
		authed.POST("/delivery/:id/decline", s.handleDecline)
		authed.POST("/delivery/pickup", s.handlePickup)
		authed.POST("/delivery/complete", s.handleComplete)
		authed.PATCH("/drivers/me/availability", s.handleAvailability)
		authed.GET("/delivery/stats", s.handleStats)
	}
}

// Handler returns the HTTP handler serving both the identity and the
// delivery routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// AddDriver registers a driver account and returns its ID.
func (s *Server) AddDriver(email, password, name string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.accounts[email] = &account{
		ID:           id,
		Email:        email,
		Name:         name,
		Role:         "driver",
		PasswordHash: hash,
	}
	s.available[id] = true
	return id, nil
}

// AddDelivery seeds a delivery assignment. Zero-value status fields
// default to a fresh assignment offer.
func (s *Server) AddDelivery(d delivery.Delivery) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.DeliveryID == "" {
		d.DeliveryID = uuid.NewString()
	}
	if d.OrderID == "" {
		d.OrderID = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = delivery.StatusAssigned
	}
	if d.AcceptanceStatus == "" {
		d.AcceptanceStatus = delivery.AcceptancePending
	}
	if d.AssignedAt.IsZero() {
		d.AssignedAt = time.Now().UTC()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = d.AssignedAt
	}
	s.deliveries[d.DeliveryID] = &d
	return d.DeliveryID
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": code, "message": message})
}
