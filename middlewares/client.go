// SPDX-License-Identifier: GPL-3.0-only

package middlewares

import (
	"net/http"
	"viroscope-server/models"

	"github.com/labstack/echo/v4"
)

const (
	SessionIDCookie    = "session_id"
	SessionTokenCookie = "session_token"
	BearerCookie       = "bearer"

	clientContextKey = "client"

	// Rolling lifetime of the bearer cookie, in seconds.
	bearerCookieMaxAge = 2600000
)

// Client is the resolved caller for one request. It is built once by the
// authentication middleware and never mutated afterwards.
type Client struct {
	UserID        *uint
	Administrator bool
	ForceReset    bool
	Groups        models.StringList
	Permissions   models.PermissionSet
	Authenticated bool
	IsAPIKey      bool
	SessionID     string
}

func anonymousClient() *Client {
	return &Client{
		Groups:      models.StringList{},
		Permissions: models.PermissionSet{},
	}
}

// SetClient attaches the resolved client to the request context.
func SetClient(c echo.Context, client *Client) {
	c.Set(clientContextKey, client)
}

// GetClient returns the client resolved for the request, or an anonymous
// one if the authentication middleware did not run.
func GetClient(c echo.Context) *Client {
	if client, ok := c.Get(clientContextKey).(*Client); ok {
		return client
	}
	return anonymousClient()
}

// SetSessionIDCookie issues the non-secret session correlation cookie.
// Present on every response served through the cookie path.
func SetSessionIDCookie(c echo.Context, sessionID string) {
	c.SetCookie(&http.Cookie{
		Name:     SessionIDCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
	})
}

// SetSessionTokenCookie issues the secret session token cookie. Only set
// on authenticated responses.
func SetSessionTokenCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     SessionTokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
	})
}

// DeleteSessionTokenCookie expires the secret token cookie, used on
// logout.
func DeleteSessionTokenCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionTokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func setBearerCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     BearerCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   bearerCookieMaxAge,
	})
}
