package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"timetabledocs/internal/config"
	"timetabledocs/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

const (
	adminRole   = "admin"
	tokenIssuer = "timetabledocs"
	// bcrypt only looks at the first 72 bytes; longer inputs can never equal the configured password.
	maxPasswordBytes = 72
)

// AdminClaims are the JWT claims carried by an operator session token.
// Department scopes the timetable records the token may read and write.
type AdminClaims struct {
	jwt.RegisteredClaims
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
}

// AdminService checks operator credentials and issues/verifies expiring session tokens.
type AdminService interface {
	Login(ctx context.Context, username, password string) (*model.AdminToken, error)
	Verify(token string) (*AdminClaims, error)
}

type adminService struct {
	username     []byte
	passwordHash []byte
	secret       []byte
	department   string
	ttl          time.Duration
	now          func() time.Time
}

// NewAdminService hashes the configured password once at startup. An empty JWT secret is replaced
// by a random one, which means tokens do not survive a restart.
func NewAdminService(cfg config.AdminConfig) (AdminService, error) {
	return newAdminService(cfg, bcrypt.DefaultCost, time.Now)
}

func newAdminService(cfg config.AdminConfig, cost int, now func() time.Time) (*adminService, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("admin username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 4 * time.Hour
	}

	return &adminService{
		username:     []byte(cfg.Username),
		passwordHash: hash,
		secret:       secret,
		department:   cfg.Department,
		ttl:          ttl,
		now:          now,
	}, nil
}

// Login compares both fields exactly and case-sensitively. Both comparisons always run so the
// response does not reveal which field was wrong.
func (s *adminService) Login(_ context.Context, username, password string) (*model.AdminToken, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), s.username) == 1
	passOK := len(password) <= maxPasswordBytes &&
		bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) == nil
	if !userOK || !passOK {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	expires := now.Add(s.ttl)
	claims := AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Role:       adminRole,
		Department: s.department,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &model.AdminToken{Token: signed, ExpiresAt: expires.UTC(), Department: s.department}, nil
}

func (s *adminService) Verify(tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Role != adminRole {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
