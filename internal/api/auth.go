package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hackgods/autodetail-scheduling/internal/calendar"
	"github.com/hackgods/autodetail-scheduling/pkg/logging"
)

const adminClaimsKey contextKey = "admin_claims"

// AdminJWT enforces an HMAC-signed JWT for admin endpoints. The token comes
// from the Authorization header, or from the token query parameter for the
// browser redirect into the Google consent screen.
func AdminJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "admin auth disabled")
				return
			}

			tokenString := bearerToken(r)
			if tokenString == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing authorization header")
				return
			}

			claims := jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), adminClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// AdminClaimsFromContext returns admin JWT claims if present.
func AdminClaimsFromContext(ctx context.Context) (jwt.RegisteredClaims, bool) {
	claims, ok := ctx.Value(adminClaimsKey).(jwt.RegisteredClaims)
	return claims, ok
}

// Connector runs the OAuth code flow against Google.
type Connector interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) error
}

var _ Connector = (*calendar.Credentials)(nil)

// GoogleAuthHandler connects the shop calendar. The callback always ends on
// the front end with ?calendar=connected or ?calendar=error.
type GoogleAuthHandler struct {
	connector   Connector
	states      calendar.StateStore
	frontendURL string
	logger      *logging.Logger
}

func NewGoogleAuthHandler(connector Connector, states calendar.StateStore, frontendURL string, logger *logging.Logger) *GoogleAuthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &GoogleAuthHandler{
		connector:   connector,
		states:      states,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

func (h *GoogleAuthHandler) Connect(w http.ResponseWriter, r *http.Request) {
	if h.connector == nil {
		writeError(w, http.StatusServiceUnavailable, "calendar_not_configured", "google calendar is not configured")
		return
	}

	state, err := h.states.Issue(r.Context())
	if err != nil {
		h.logger.Error("failed to issue oauth state", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not start google authorization")
		return
	}
	http.Redirect(w, r, h.connector.AuthCodeURL(state), http.StatusFound)
}

func (h *GoogleAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if h.connector == nil {
		writeError(w, http.StatusServiceUnavailable, "calendar_not_configured", "google calendar is not configured")
		return
	}

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		h.logger.Warn("google authorization declined", "error", e)
		h.finish(w, r, "error")
		return
	}

	ok, err := h.states.Consume(r.Context(), q.Get("state"))
	if err != nil || !ok {
		h.logger.Warn("oauth state rejected", "error", err)
		h.finish(w, r, "error")
		return
	}

	code := q.Get("code")
	if code == "" {
		h.finish(w, r, "error")
		return
	}
	if err := h.connector.Exchange(r.Context(), code); err != nil {
		h.logger.Error("google token exchange failed", "error", err)
		h.finish(w, r, "error")
		return
	}

	h.logger.Info("google calendar connected")
	h.finish(w, r, "connected")
}

func (h *GoogleAuthHandler) finish(w http.ResponseWriter, r *http.Request, result string) {
	target, err := url.Parse(h.frontendURL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "invalid frontend url")
		return
	}
	q := target.Query()
	q.Set("calendar", result)
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}
