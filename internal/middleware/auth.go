package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/pets/api/transport"
	"github.com/fastygo/pets/domain"
	"github.com/fastygo/pets/internal/infrastructure/security"
	"github.com/fastygo/pets/pkg/httpcontext"
)

type TokenParser interface {
	Parse(token string) (*security.Claims, error)
}

// SessionGetter confirms that the session behind a token was not revoked.
type SessionGetter interface {
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
}

// JWTAuth rejects requests without a valid bearer token. On success the
// caller's id, role and session are exposed to handlers as request headers;
// client-supplied values of those headers are discarded. A nil sessions
// skips the revocation check.
func JWTAuth(tokens TokenParser, sessions SessionGetter, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			ctx.Request.Header.Del(httpcontext.HeaderUserID)
			ctx.Request.Header.Del(httpcontext.HeaderUserRole)
			ctx.Request.Header.Del(httpcontext.HeaderSessionID)

			tokenString := extractToken(ctx)
			if tokenString == "" {
				reject(ctx, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "missing token")
				return
			}

			claims, err := tokens.Parse(tokenString)
			if err != nil {
				logger.Warn("invalid jwt token", zap.Error(err), zap.String("request_id", httpcontext.RequestID(ctx)))
				reject(ctx, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "invalid token")
				return
			}

			if sessions != nil && claims.SessionID != "" {
				lookupCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				_, err := sessions.GetSession(lookupCtx, claims.SessionID)
				cancel()
				if err != nil {
					if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
						logger.Error("session lookup failed", zap.Error(err))
					}
					reject(ctx, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "session expired or revoked")
					return
				}
			}

			ctx.Request.Header.Set(httpcontext.HeaderUserID, claims.UserID)
			ctx.Request.Header.Set(httpcontext.HeaderUserRole, claims.Role)
			if claims.SessionID != "" {
				ctx.Request.Header.Set(httpcontext.HeaderSessionID, claims.SessionID)
			}

			next(ctx)
		}
	}
}

// RequireRole lets through callers whose token carries role. It must run
// after JWTAuth.
func RequireRole(role domain.UserRole) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			if httpcontext.UserRole(ctx) != string(role) {
				reject(ctx, http.StatusForbidden, domain.ErrCodeForbidden, "insufficient role")
				return
			}
			next(ctx)
		}
	}
}

// Chain applies middlewares so that the first one runs first.
func Chain(h fasthttp.RequestHandler, mws ...func(fasthttp.RequestHandler) fasthttp.RequestHandler) fasthttp.RequestHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := strings.TrimSpace(string(ctx.Request.Header.Peek("Authorization")))
	if header == "" {
		return ""
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

func reject(ctx *fasthttp.RequestCtx, status int, code domain.ErrorCode, message string) {
	body, _ := json.Marshal(transport.NewError(string(code), message, nil))
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}
