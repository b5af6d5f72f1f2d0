package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"portfoliotracker/src/model"
	"portfoliotracker/src/response"
	"portfoliotracker/src/security"
)

type SessionFinder interface {
	FindByID(ctx context.Context, sessionID int64) (*model.UserSession, error)
}

// SessionCache is an optional read-through cache in front of SessionFinder.
type SessionCache interface {
	Get(ctx context.Context, sessionID int64) (*model.UserSession, error)
	Set(ctx context.Context, session *model.UserSession) error
}

type TokenParser interface {
	Parse(token string) (*security.Claims, error)
}

// RequireAuthentication rejects requests without a valid bearer token bound
// to an active session. Websocket clients may pass the token as ?token=.
func RequireAuthentication(tokens TokenParser, sessions SessionFinder, cache SessionCache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				response.Error(w, http.StatusUnauthorized, "Missing or invalid authorization header")
				return
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				logger.WithError(err).Debug("rejected bearer token")
				response.Error(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			session, err := lookupSession(r.Context(), claims.SessionID, sessions, cache)
			if err != nil {
				logger.WithError(err).WithField("session_id", claims.SessionID).Error("failed to load session")
				response.Error(w, http.StatusInternalServerError, "Internal Server Error")
				return
			}
			if session == nil || session.UserID != claims.UserID || !session.Valid(time.Now()) {
				response.Error(w, http.StatusUnauthorized, "Session expired")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func lookupSession(ctx context.Context, sessionID int64, sessions SessionFinder, cache SessionCache) (*model.UserSession, error) {
	if cache != nil {
		cached, err := cache.Get(ctx, sessionID)
		if err != nil {
			logger.WithError(err).Warn("session cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	session, err := sessions.FindByID(ctx, sessionID)
	if err != nil || session == nil {
		return session, err
	}

	if cache != nil {
		if err := cache.Set(ctx, session); err != nil {
			logger.WithError(err).Warn("session cache write failed")
		}
	}
	return session, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
