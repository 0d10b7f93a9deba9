// file: internal/middleware/auth.go
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ecomission/internal/config"
	"ecomission/internal/contextutils"
	"ecomission/internal/models"
	"ecomission/internal/response"
	"ecomission/internal/services"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var errAuthNotConfigured = errors.New("token verification is not configured")

// Authenticator verifies HS256 bearer tokens and attaches the caller to the request
type Authenticator struct {
	secret  []byte
	issuer  string
	builder *response.Builder
	logger  *zap.Logger
}

// NewAuthenticator creates token verification middleware
func NewAuthenticator(cfg config.AuthConfig, builder *response.Builder, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{
		secret:  []byte(cfg.JWTSecret),
		issuer:  cfg.JWTIssuer,
		builder: builder,
		logger:  logger,
	}
}

// RequireAuth rejects requests without a valid bearer token
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := a.authenticate(r)
		if err != nil {
			contextutils.GetLogger(r.Context(), a.logger).Warn("Authentication failed", zap.Error(err))
			a.builder.WriteError(w, r, services.NewUnauthorizedError("authentication required"))
			return
		}

		ctx := contextutils.WithActor(r.Context(), actor)
		ctx = contextutils.WithLogger(ctx, contextutils.GetLogger(ctx, a.logger).With(
			zap.Int64("user_id", actor.UserID),
			zap.String("role", string(actor.Role)),
		))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects authenticated callers holding none of roles
func (a *Authenticator) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := contextutils.GetActor(r.Context())
			if !ok {
				a.builder.WriteError(w, r, services.NewUnauthorizedError("authentication required"))
				return
			}
			for _, role := range roles {
				if actor.Is(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			a.builder.WriteError(w, r, services.NewForbiddenError("insufficient role"))
		})
	}
}

func (a *Authenticator) authenticate(r *http.Request) (models.Actor, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return models.Actor{}, errors.New("no authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return models.Actor{}, errors.New("invalid authorization header format")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.Parse(parts[1], func(*jwt.Token) (interface{}, error) {
		if len(a.secret) == 0 {
			return nil, errAuthNotConfigured
		}
		return a.secret, nil
	}, opts...)
	if err != nil {
		return models.Actor{}, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Actor{}, errors.New("invalid token claims")
	}
	return actorFromClaims(claims)
}

// actorFromClaims reads the subject as a numeric user ID, accepting string or number encodings
func actorFromClaims(claims jwt.MapClaims) (models.Actor, error) {
	var userID int64
	switch sub := claims["sub"].(type) {
	case float64:
		userID = int64(sub)
	case string:
		id, err := strconv.ParseInt(sub, 10, 64)
		if err != nil {
			return models.Actor{}, fmt.Errorf("invalid subject %q", sub)
		}
		userID = id
	default:
		return models.Actor{}, errors.New("missing subject")
	}
	if userID <= 0 {
		return models.Actor{}, errors.New("invalid subject")
	}

	role, _ := claims["role"].(string)
	return models.Actor{UserID: userID, Role: models.Role(strings.ToUpper(role))}, nil
}

// IssueToken signs an HS256 token for actor
func IssueToken(cfg config.AuthConfig, actor models.Actor, ttl time.Duration) (string, error) {
	if cfg.JWTSecret == "" {
		return "", errAuthNotConfigured
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(actor.UserID, 10),
		"role": string(actor.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	if cfg.JWTIssuer != "" {
		claims["iss"] = cfg.JWTIssuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
}
