// Package auth provides middleware and helpers for session-based
// authentication in HTTP requests. Sessions are opaque tokens stored on the
// user record and delivered via a cookie or the Authorization header.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/dietapi/internal/logger"
	"github.com/patric-chuzhbe/dietapi/internal/models"
	"github.com/patric-chuzhbe/dietapi/internal/user"
)

type sessionKeeper interface {
	GetUserBySessionToken(ctx context.Context, sessionToken string) (*user.User, error)
}

// Auth resolves session tokens to users and manages the session cookie.
type Auth struct {
	// db is the interface to the user data storage.
	db sessionKeeper

	// authCookieName is the name of the cookie carrying the session token.
	authCookieName string

	// authCookieMaxAge bounds the lifetime of the issued cookie.
	authCookieMaxAge time.Duration
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key used to store and retrieve the authenticated user's ID.
const UserIDKey ContextKey = "userID"

// New creates a new Auth handler with the given user data access layer,
// cookie name, and cookie lifetime.
func New(
	db sessionKeeper,
	authCookieName string,
	authCookieMaxAge time.Duration,
) *Auth {
	return &Auth{
		db:               db,
		authCookieName:   authCookieName,
		authCookieMaxAge: authCookieMaxAge,
	}
}

func writeUnauthorized(response http.ResponseWriter) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(response).Encode(models.ErrorResponse{Error: "authentication required"})
}

// AuthenticateUser is an HTTP middleware that authenticates incoming requests
// using the session token found in the Authorization header or cookie.
// It resolves the user from storage and stores the user ID in the request
// context; a missing or unresolvable token ends the request with 401.
func (a *Auth) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		sessionToken := a.getSessionTokenFromAuthorizationHeaderOrCookie(request)
		if sessionToken == "" {
			writeUnauthorized(response)
			return
		}

		usr, err := a.db.GetUserBySessionToken(request.Context(), sessionToken)
		if err != nil {
			logger.Log.Debugln("Error calling the `a.db.GetUserBySessionToken()`: ", zap.Error(err))
			response.WriteHeader(http.StatusInternalServerError)
			return
		}

		if usr.ID == "" {
			writeUnauthorized(response)
			return
		}

		ctx := context.WithValue(request.Context(), UserIDKey, usr.ID)
		requestWithCtx := request.WithContext(ctx)

		h.ServeHTTP(response, requestWithCtx)
	}

	return http.HandlerFunc(middleware)
}

// ResolveUser looks up the user bound to the request's session token, if any.
// A request without a token (or with a token no user holds) yields a user
// with an empty ID field. Registration uses this to detect an already bound
// session.
func (a *Auth) ResolveUser(request *http.Request) (*user.User, error) {
	sessionToken := a.getSessionTokenFromAuthorizationHeaderOrCookie(request)
	if sessionToken == "" {
		return &user.User{ID: ""}, nil
	}

	return a.db.GetUserBySessionToken(request.Context(), sessionToken)
}

// IssueSessionCookie delivers a session token to the client.
func (a *Auth) IssueSessionCookie(response http.ResponseWriter, sessionToken string) {
	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.authCookieName,
			Value:    sessionToken,
			Path:     "/",
			MaxAge:   int(a.authCookieMaxAge.Seconds()),
			HttpOnly: true,
		},
	)
}

// ExpireSessionCookie tells the client to drop the session cookie.
// Used when the account behind the session is deleted.
func (a *Auth) ExpireSessionCookie(response http.ResponseWriter) {
	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.authCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		},
	)
}

func (a *Auth) getSessionTokenFromAuthorizationHeaderOrCookie(request *http.Request) string {
	sessionToken := request.Header.Get("Authorization")
	if sessionToken != "" {
		return sessionToken
	}
	cookie, err := request.Cookie(a.authCookieName)
	if err == nil {
		sessionToken = cookie.Value
	}

	return sessionToken
}
