// SPDX-License-Identifier: GPL-3.0-only

package middlewares

import (
	"errors"
	"net/http"
	"time"
	"viroscope-server/commons"
	"viroscope-server/crypto"
	"viroscope-server/db"
	"viroscope-server/models"
	"viroscope-server/sessions"
	"viroscope-server/users"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// errUnmatchedCredential marks a well-formed credential that did not
// resolve to an identity. On the bearer path this falls through to cookie
// resolution; real store failures never use this sentinel.
var errUnmatchedCredential = errors.New("credential did not match")

// Config controls the authentication middleware.
type Config struct {
	// PublicPaths are routes exempt from authentication. Requests to them
	// get an anonymous client regardless of presented credentials.
	PublicPaths map[string]bool

	// OIDCSecret enables bearer token authentication when non-empty.
	OIDCSecret string

	// ResetPath is the password reset endpoint, the only route on which a
	// pending reset code survives the request.
	ResetPath string
}

// NewConfig builds the middleware configuration from the environment and
// the fixed route contract.
func NewConfig() Config {
	return Config{
		PublicPaths: map[string]bool{
			"/account/login":  true,
			"/account/logout": true,
			"/account/reset":  true,
		},
		OIDCSecret: commons.GetEnv("OIDC_SECRET"),
		ResetPath:  "/account/reset",
	}
}

// Authenticate resolves the caller of every request into a Client and
// performs session housekeeping around the handler. Resolution order:
// public-route marker, API key header, bearer token, session cookies.
func Authenticate(cfg Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.PublicPaths[c.Request().URL.Path] {
				SetClient(c, anonymousClient())
				return next(c)
			}

			if c.Request().Header.Get(echo.HeaderAuthorization) != "" {
				client, err := authenticateWithKey(c)
				if err != nil {
					return err
				}
				SetClient(c, client)
				return next(c)
			}

			if cfg.OIDCSecret != "" {
				client, token, err := authenticateWithBearer(cfg, c)
				switch {
				case err == nil:
					SetClient(c, client)
					c.Response().Before(func() {
						setBearerCookie(c, token)
					})
					return next(c)
				case errors.Is(err, errUnmatchedCredential):
					// A bearer deployment may also serve cookie sessions.
				default:
					c.Logger().Error("Bearer authentication failed:", err)
					return echo.ErrInternalServerError
				}
			}

			return authenticateWithSession(cfg, c, next)
		}
	}
}

// authenticateWithKey authenticates a Basic Authorization header carrying
// a user handle and an API key secret. Administrator status and groups
// come from the live user record; permissions come from the key's capped
// snapshot.
func authenticateWithKey(c echo.Context) (*Client, error) {
	handle, secret, ok := c.Request().BasicAuth()
	if !ok {
		return nil, &echo.HTTPError{
			Code:    http.StatusUnauthorized,
			Message: "Malformed Authorization header",
		}
	}

	var key models.APIKey
	err := db.Conn.First(&key, "key_hash = ?", crypto.HashKey(secret)).Error
	if err != nil && !recordNotFound(err) {
		c.Logger().Error("API key lookup failed:", err)
		return nil, echo.ErrInternalServerError
	}

	user, userErr := users.FindByHandle(db.Conn, handle)
	if userErr != nil {
		c.Logger().Error("API key user lookup failed:", userErr)
		return nil, echo.ErrInternalServerError
	}

	if recordNotFound(err) || user == nil || key.UserID != user.ID {
		return nil, &echo.HTTPError{
			Code:    http.StatusUnauthorized,
			Message: "Invalid authorization header",
		}
	}

	now := time.Now()
	if err := db.Conn.Model(&key).Update("last_used_at", &now).Error; err != nil {
		c.Logger().Error("Failed to update API key last_used_at:", err)
	}

	return &Client{
		UserID:        &user.ID,
		Administrator: user.Administrator,
		Groups:        user.Groups,
		Permissions:   key.Permissions,
		Authenticated: true,
		IsAPIKey:      true,
	}, nil
}

// authenticateWithBearer validates a bearer token from the bearer header
// or cookie, checked in that order, and resolves its subject to a local
// user. Missing, malformed or expired tokens yield errUnmatchedCredential.
func authenticateWithBearer(cfg Config, c echo.Context) (*Client, string, error) {
	token := c.Request().Header.Get("bearer")
	if token == "" {
		if cookie, err := c.Cookie(BearerCookie); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		return nil, "", errUnmatchedCredential
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.OIDCSecret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, "", errUnmatchedCredential
	}

	oid, _ := claims["oid"].(string)
	if oid == "" {
		return nil, "", errUnmatchedCredential
	}
	name, _ := claims["name"].(string)

	user, err := users.FindOrCreateByExternalID(db.Conn, oid, name)
	if err != nil {
		return nil, "", err
	}

	return &Client{
		UserID:        &user.ID,
		Administrator: user.Administrator,
		Groups:        user.Groups,
		Permissions:   user.Permissions,
		Authenticated: true,
	}, token, nil
}

// authenticateWithSession resolves the session cookies, degrading to a
// fresh anonymous session whenever they are absent or invalid. After the
// handler runs it clears any pending reset code (except on the reset
// endpoint) and re-issues the session_id cookie, even when the handler
// returned an error.
func authenticateWithSession(cfg Config, c echo.Context, next echo.HandlerFunc) error {
	sessionID := cookieValue(c, SessionIDCookie)
	sessionToken := cookieValue(c, SessionTokenCookie)

	session, tokenOK, err := sessions.Get(db.Conn, sessionID, sessionToken)
	if err != nil {
		c.Logger().Error("Session lookup failed:", err)
		return echo.ErrInternalServerError
	}

	if session == nil {
		session, err = sessions.Create(db.Conn, c.RealIP())
		if err != nil {
			c.Logger().Error("Failed to create anonymous session:", err)
			return echo.ErrInternalServerError
		}
	}

	var client *Client
	if tokenOK {
		client = &Client{
			UserID:        session.UserID,
			Administrator: session.Administrator,
			ForceReset:    session.ForceReset,
			Groups:        session.Groups,
			Permissions:   session.Permissions,
			Authenticated: true,
			SessionID:     session.ID,
		}
	} else {
		client = anonymousClient()
		client.SessionID = session.ID
	}
	SetClient(c, client)

	c.Response().Before(func() {
		SetSessionIDCookie(c, session.ID)
	})

	err = next(c)

	// A reset code is good for exactly one request cycle outside the
	// reset endpoint.
	if c.Request().URL.Path != cfg.ResetPath {
		if clearErr := sessions.ClearResetCode(db.Conn, session.ID); clearErr != nil {
			c.Logger().Error("Failed to clear reset code:", clearErr)
		}
	}

	return err
}

func cookieValue(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func recordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// GetAuthenticatedUser loads the live user record behind the resolved
// client. Handlers use this when a snapshot is not enough.
func GetAuthenticatedUser(c echo.Context) (*models.User, error) {
	client := GetClient(c)
	if !client.Authenticated || client.UserID == nil {
		return nil, errors.New("no authenticated user found")
	}

	user, err := users.FindByID(db.Conn, *client.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("no authenticated user found")
	}
	return user, nil
}
