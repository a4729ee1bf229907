package sim

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const refreshCookie = "refresh_token"

func (s *Server) handleLogin(c *gin.Context) {
	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&credentials); err != nil {
		fail(c, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[credentials.Email]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(credentials.Password)) != nil {
		fail(c, http.StatusUnauthorized, "invalid_credentials", "wrong email or password")
		return
	}

	token, err := s.mintAccessToken(acct)
	if err != nil {
		fail(c, http.StatusInternalServerError, "token_mint_failed", "could not create access token")
		return
	}
	s.issueRefreshCookie(c, acct)

	c.JSON(http.StatusOK, gin.H{
		"message":     "login successful",
		"accessToken": token,
		"user":        backendUser(acct),
	})
}

func (s *Server) handleValidate(c *gin.Context) {
	acct, ok := s.accountFromBearer(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "invalid_token", "bearer token rejected")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "token valid",
		"user":    backendUser(acct),
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	cookie, err := c.Cookie(refreshCookie)
	if err != nil {
		fail(c, http.StatusUnauthorized, "no_refresh_token", "renewal credential missing")
		return
	}

	s.mu.Lock()
	accountID, ok := s.refreshTokens[cookie]
	var acct *account
	if ok {
		for _, a := range s.accounts {
			if a.ID == accountID {
				acct = a
				break
			}
		}
	}
	s.mu.Unlock()
	if acct == nil {
		fail(c, http.StatusUnauthorized, "invalid_refresh_token", "renewal credential rejected")
		return
	}

	token, err := s.mintAccessToken(acct)
	if err != nil {
		fail(c, http.StatusInternalServerError, "token_mint_failed", "could not create access token")
		return
	}
	// Rotate the renewal credential on every refresh.
	s.issueRefreshCookie(c, acct)
	s.mu.Lock()
	delete(s.refreshTokens, cookie)
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"message":     "token refreshed",
		"accessToken": token,
		"user":        backendUser(acct),
	})
}

func (s *Server) handleLogout(c *gin.Context) {
	if cookie, err := c.Cookie(refreshCookie); err == nil {
		s.mu.Lock()
		delete(s.refreshTokens, cookie)
		s.mu.Unlock()
	}
	c.SetCookie(refreshCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// requireBearer guards the delivery routes; the resolved driver ID lands
// in the context.
func (s *Server) requireBearer(c *gin.Context) {
	acct, ok := s.accountFromBearer(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "invalid_token", "bearer token rejected")
		c.Abort()
		return
	}
	c.Set("driverID", acct.ID)
	c.Next()
}

func (s *Server) accountFromBearer(c *gin.Context) (*account, bool) {
	header := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return nil, false
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acct := range s.accounts {
		if acct.ID == claims.Subject {
			return acct, true
		}
	}
	return nil, false
}

func (s *Server) mintAccessToken(acct *account) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   acct.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) issueRefreshCookie(c *gin.Context, acct *account) {
	token := uuid.NewString()
	s.mu.Lock()
	s.refreshTokens[token] = acct.ID
	s.mu.Unlock()
	c.SetCookie(refreshCookie, token, int((30 * 24 * time.Hour).Seconds()), "/", "", false, true)
}

func backendUser(acct *account) gin.H {
	return gin.H{
		"id":    acct.ID,
		"email": acct.Email,
		"name":  acct.Name,
		"role":  acct.Role,
	}
}
