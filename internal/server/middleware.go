package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/stepform/stepform/pkg/backend"
	"github.com/stepform/stepform/pkg/logging"
)

// Middleware is a standard HTTP middleware.
type Middleware func(http.Handler) http.Handler

// authCookie carries the backend bearer token between requests.
const authCookie = "auth"

type requestIDKey struct{}

// RequestID attaches a unique ID to every request.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = uuid.NewString()
			}
			ctx := context.WithValue(r.Context(), requestIDKey{}, id)
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestLogger logs one line per request and attaches a request-scoped
// logger carrying the request ID to the context, for handlers to pick up via
// logging.LoggerFromContext.
func RequestLogger(logger logging.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := logger.With(logging.String("requestID", GetRequestID(r.Context())))
			r = r.WithContext(logging.ContextWithLogger(r.Context(), reqLogger))
			rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)
			reqLogger.Info("request",
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", rw.status),
				logging.Duration("elapsed", time.Since(start)))
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recovery turns panics into 500s instead of dropped connections.
func Recovery(logger logging.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("handler panic",
						logging.Any("panic", rec),
						logging.String("path", r.URL.Path))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type sessionKey struct{}

// sessionFrom returns the backend session attached by the auth middleware.
func sessionFrom(ctx context.Context) backend.Session {
	sess, _ := ctx.Value(sessionKey{}).(backend.Session)
	return sess
}

// requirePage guards a server-rendered page: without a credential the
// browser is redirected to the login page.
func (s *Server) requirePage(h http.HandlerFunc) http.Handler {
	return s.withSession(h, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})
}

// requireAPI guards a JSON or media endpoint: without a credential the
// caller gets a bare 401.
func (s *Server) requireAPI(h http.HandlerFunc) http.Handler {
	return s.withSession(h, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}

func (s *Server) withSession(h http.HandlerFunc, reject http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(authCookie)
		if err != nil || cookie.Value == "" {
			reject(w, r)
			return
		}
		sess := backend.Session{Token: cookie.Value}
		h(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

// setAuthCookie stores the bearer token as an httpOnly cookie.
func (s *Server) setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.cfg.CookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
