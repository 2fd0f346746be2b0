package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"chirpnet/internal/cache"
	"chirpnet/internal/config"
	"chirpnet/internal/middleware"
	"chirpnet/internal/models"
	"chirpnet/internal/observability"
	"chirpnet/internal/repository"
	"chirpnet/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

const (
	SessionTTL    = 24 * time.Hour
	TokenIssuer   = "chirpnet-api"
	TokenAudience = "chirpnet-client"
)

// AuthService issues and resolves session tokens.
type AuthService struct {
	userRepo   repository.UserRepository
	secret     []byte
	bcryptCost int
	now        func() time.Time
}

type RegisterInput struct {
	Username string
	FullName string
	Email    string
	Password string
}

// AuthResult is a user together with a freshly issued session token.
type AuthResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

func NewAuthService(userRepo repository.UserRepository, cfg *config.Config) *AuthService {
	cost := bcrypt.DefaultCost
	if cfg.BcryptCost != 0 {
		cost = cfg.BcryptCost
	}
	return &AuthService{
		userRepo:   userRepo,
		secret:     []byte(cfg.JWTSecret),
		bcryptCost: cost,
		now:        time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (res *AuthResult, err error) {
	ctx, span := observability.StartSpan(ctx, "AuthService", "Register")
	defer func() {
		observability.EndSpan(span, err)
		recordAuthEvent("signup", err)
	}()

	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Username == "" || in.FullName == "" || in.Email == "" || in.Password == "" {
		return nil, models.NewValidationError("Username, full name, email and password are required")
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateFullName(in.FullName); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	taken, err := s.userRepo.UsernameTaken(ctx, in.Username, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.NewConflictError("Username already exists")
	}
	taken, err = s.userRepo.EmailTaken(ctx, in.Email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.NewConflictError("Email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: in.Username,
		FullName: in.FullName,
		Email:    in.Email,
		Password: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	user.EnsureSets()
	span.SetAttributes(attribute.Int("user.id", int(user.ID)))

	token, exp, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) Authenticate(ctx context.Context, email, password string) (res *AuthResult, err error) {
	ctx, span := observability.StartSpan(ctx, "AuthService", "Authenticate")
	defer func() {
		observability.EndSpan(span, err)
		recordAuthEvent("login", err)
	}()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	creds, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if creds == nil {
		return nil, models.NewNotFoundMessage("User not found")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(creds.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}

	user, err := s.userRepo.GetByID(ctx, creds.ID)
	if err != nil {
		return nil, err
	}
	token, exp, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// IssueToken signs a session token for userID valid for SessionTTL.
func (s *AuthService) IssueToken(userID uint) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, models.NewInternalError(errors.New("JWT secret not configured"))
	}

	now := s.now()
	exp := now.Add(SessionTTL)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		Issuer:    TokenIssuer,
		Audience:  jwt.ClaimStrings{TokenAudience},
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, models.NewInternalError(err)
	}
	return signed, exp, nil
}

func (s *AuthService) parse(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(_ *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// ResolveSession validates token and loads the user it belongs to. Every
// failure is reported as Unauthorized.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (*models.Session, *models.User, error) {
	if token == "" {
		return nil, nil, models.NewUnauthorizedError("Unauthorized - No Token Provided")
	}

	claims, err := s.parse(token)
	if err != nil {
		middleware.AuthEvents.WithLabelValues("session", "invalid").Inc()
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, nil, models.NewUnauthorizedError("Unauthorized - Token Expired")
		}
		return nil, nil, models.NewUnauthorizedError("Unauthorized - Invalid Token")
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 || claims.ID == "" {
		middleware.AuthEvents.WithLabelValues("session", "invalid").Inc()
		return nil, nil, models.NewUnauthorizedError("Unauthorized - Invalid Token")
	}

	revoked, err := cache.IsRevoked(ctx, claims.ID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "revocation check failed", "error", err)
	}
	if revoked {
		middleware.AuthEvents.WithLabelValues("session", "revoked").Inc()
		return nil, nil, models.NewUnauthorizedError("Unauthorized - Token Revoked")
	}

	user, err := s.userRepo.GetByID(ctx, uint(userID))
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, nil, models.NewUnauthorizedError("Unauthorized - User Not Found")
		}
		return nil, nil, err
	}

	session := &models.Session{
		UserID:  user.ID,
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, user, nil
}

// EndSession revokes token for the rest of its lifetime. Unparseable tokens
// and Redis failures are ignored so logout always succeeds.
func (s *AuthService) EndSession(ctx context.Context, token string) {
	defer recordAuthEvent("logout", nil)
	if token == "" {
		return
	}
	claims, err := s.parse(token)
	if err != nil || claims.ExpiresAt == nil {
		return
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if err := cache.Revoke(ctx, claims.ID, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to revoke session", "error", err)
	}
}

func recordAuthEvent(event string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	middleware.AuthEvents.WithLabelValues(event, result).Inc()
}
