package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/core/user"
)

// Service is the main auth service with dependencies
type Service struct {
	repo           RepositoryAPI
	tokenGenerator TokenGenerator
	accessTTL      time.Duration
	logger         *slog.Logger

	mu      sync.Mutex
	revoked map[string]time.Time // token id -> expiry
	now     func() time.Time
}

// NewService creates a new auth service
func NewService(repo RepositoryAPI, tokenGen *JWTTokenGenerator, logger *slog.Logger) *Service {
	return &Service{
		repo:           repo,
		tokenGenerator: tokenGen,
		accessTTL:      tokenGen.AccessTokenTTL,
		logger:         logger,
		revoked:        make(map[string]time.Time),
		now:            time.Now,
	}
}

// NewJWTTokenGenerator creates a new JWT token generator
func NewJWTTokenGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTTokenGenerator {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
	}
}

// Authenticate validates credentials and returns tokens
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	email := strings.ToLower(strings.TrimSpace(dto.Email))
	account, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Warn("login for unknown email", "email", email)
			return AuthTokens{}, errors.InvalidCredentials()
		}
		return AuthTokens{}, err
	}

	if !account.HasAccount {
		return AuthTokens{}, errors.UserInactive()
	}
	if err := VerifyPassword(account.PasswordHash, dto.Password); err != nil {
		s.logger.Warn("login with wrong password", "employee_id", account.EmployeeID)
		return AuthTokens{}, errors.InvalidCredentials()
	}
	if !account.IsActive {
		s.logger.Warn("login to inactive account", "employee_id", account.EmployeeID)
		return AuthTokens{}, errors.UserInactive()
	}

	tokens, err := s.issue(account)
	if err != nil {
		return AuthTokens{}, err
	}

	if err := s.repo.UpdateLastLogin(ctx, account.EmployeeID, s.now()); err != nil {
		s.logger.Warn("failed to record last login", "employee_id", account.EmployeeID, "error", err)
	}

	s.logger.Info("employee logged in", "employee_id", account.EmployeeID, "role", account.Role)
	return tokens, nil
}

// RefreshTokens rotates a refresh token. The presented token is revoked so it
// cannot be replayed.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}
	if s.isRevoked(claims.ID) {
		return AuthTokens{}, errors.InvalidToken()
	}

	account, err := s.repo.GetAccountByID(ctx, claims.EmployeeID)
	if err != nil {
		if errors.IsNotFound(err) {
			return AuthTokens{}, errors.UserInactive()
		}
		return AuthTokens{}, err
	}
	if !account.CanLogin() {
		return AuthTokens{}, errors.UserInactive()
	}

	tokens, err := s.issue(account)
	if err != nil {
		return AuthTokens{}, err
	}
	s.revoke(claims)
	return tokens, nil
}

// ValidateAccessToken validates access token and returns claims
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.tokenGenerator.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}
	if s.isRevoked(claims.ID) {
		return nil, errors.InvalidToken()
	}
	return claims, nil
}

// LoadActor re-reads role and department so changes made by HR apply to the
// next request, not the next login.
func (s *Service) LoadActor(ctx context.Context, employeeID int64) (*user.Actor, error) {
	account, err := s.repo.GetAccountByID(ctx, employeeID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.UserInactive()
		}
		return nil, err
	}
	if !account.CanLogin() {
		return nil, errors.UserInactive()
	}

	actor := account.ToActor()
	if actor == nil {
		s.logger.Error("employee has an unknown role", "employee_id", employeeID, "role", account.Role)
		return nil, errors.RoleNotPermitted()
	}
	return actor, nil
}

// Logout revokes the access token and, when given, the refresh token of the
// same session.
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) error {
	claims, err := s.ValidateAccessToken(accessToken)
	if err != nil {
		return err
	}
	s.revoke(claims)

	if refreshToken != "" {
		refresh, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
		if err == nil && refresh.EmployeeID == claims.EmployeeID {
			s.revoke(refresh)
		}
	}

	s.logger.Info("employee logged out", "employee_id", claims.EmployeeID)
	return nil
}

func (s *Service) issue(account *Account) (AuthTokens, error) {
	accessToken, err := s.tokenGenerator.GenerateAccessToken(account.EmployeeID, account.Role)
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("failed to sign access token", err)
	}

	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(account.EmployeeID, account.Role)
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("failed to sign refresh token", err)
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

func (s *Service) revoke(claims *Claims) {
	if claims.ID == "" || claims.ExpiresAt == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, id)
		}
	}
	s.revoked[claims.ID] = claims.ExpiresAt.Time
}

func (s *Service) isRevoked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[id]
	return ok
}

// GenerateAccessToken creates a new access token
func (j *JWTTokenGenerator) GenerateAccessToken(employeeID int64, role string) (string, error) {
	return j.sign(employeeID, role, TokenTypeAccess, j.AccessTokenTTL, j.AccessTokenSecret)
}

// GenerateRefreshToken creates a new refresh token
func (j *JWTTokenGenerator) GenerateRefreshToken(employeeID int64, role string) (string, error) {
	return j.sign(employeeID, role, TokenTypeRefresh, j.RefreshTokenTTL, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) sign(employeeID int64, role, tokenType string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := &Claims{
		EmployeeID: employeeID,
		Role:       role,
		TokenType:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(employeeID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (j *JWTTokenGenerator) ValidateAccessToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, TokenTypeAccess, j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, TokenTypeRefresh, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) validate(tokenString, tokenType string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.TokenExpired()
		}
		return nil, errors.InvalidToken()
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != tokenType || claims.EmployeeID <= 0 {
		return nil, errors.InvalidToken()
	}
	return claims, nil
}
