// Package auth provides signed session token management for the API.
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionExpiry is how long an issued session stays valid. It matches the
// directory profile cache lifetime so a session never outlives the staff
// profile it was issued from by more than one refresh.
const SessionExpiry = 2 * time.Hour

// DefaultLeeway for token validation.
const DefaultLeeway = 30 * time.Second

// ErrInvalidToken is returned when token validation fails.
var ErrInvalidToken = errors.New("invalid token")

// ErrExpiredToken is returned when the token has expired.
var ErrExpiredToken = errors.New("token has expired")

// ErrInvalidUserID is returned when a session is requested for a
// non-positive user id.
var ErrInvalidUserID = errors.New("user id must be positive")

// Claims are the session JWT claims. The subject is the user's numeric id.
type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
}

// SessionService issues and validates signed session tokens.
// Supports dual-key rotation: tokens are signed with currentSecret,
// but can be validated with either currentSecret or previousSecret.
type SessionService struct {
	currentSecret  []byte
	previousSecret []byte
	leeway         time.Duration
}

// NewSessionService creates a SessionService with the given secret.
func NewSessionService(secret string) *SessionService {
	return &SessionService{
		currentSecret: []byte(secret),
		leeway:        DefaultLeeway,
	}
}

// NewSessionServiceWithRotation creates a SessionService with dual-key
// support for zero-downtime secret rotation. Pass an empty previousSecret
// when no rotation is in progress.
func NewSessionServiceWithRotation(currentSecret, previousSecret string) *SessionService {
	svc := &SessionService{
		currentSecret: []byte(currentSecret),
		leeway:        DefaultLeeway,
	}
	if previousSecret != "" {
		svc.previousSecret = []byte(previousSecret)
	}
	return svc
}

// IssueSession creates a signed session token for the given user.
func (s *SessionService) IssueSession(userID int64, name string) (string, error) {
	if userID <= 0 {
		return "", ErrInvalidUserID
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionExpiry)),
		},
		Name: name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.currentSecret)
}

// ValidateSession parses and validates a session token, returning the
// user id it was issued for. Tries currentSecret first, then
// previousSecret if rotation is in progress.
func (s *SessionService) ValidateSession(tokenString string) (int64, error) {
	claims, err := s.parse(tokenString, s.currentSecret)
	if err != nil && s.previousSecret != nil {
		var prevErr error
		claims, prevErr = s.parse(tokenString, s.previousSecret)
		if prevErr != nil {
			return 0, classifyError(err)
		}
		err = nil
	}
	if err != nil {
		return 0, classifyError(err)
	}

	userID, parseErr := strconv.ParseInt(claims.Subject, 10, 64)
	if parseErr != nil || userID <= 0 {
		return 0, ErrInvalidToken
	}
	return userID, nil
}

// ValidateSessionClaims is like ValidateSession but returns the full
// claims, for handlers that surface the session profile.
func (s *SessionService) ValidateSessionClaims(tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString, s.currentSecret)
	if err != nil && s.previousSecret != nil {
		if prev, prevErr := s.parse(tokenString, s.previousSecret); prevErr == nil {
			return prev, nil
		}
	}
	if err != nil {
		return nil, classifyError(err)
	}
	return claims, nil
}

func (s *SessionService) parse(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithLeeway(s.leeway))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func classifyError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrExpiredToken
	}
	return ErrInvalidToken
}
