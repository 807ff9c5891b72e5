package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/gfwl-hub/gfwl-hub-api/pkg/errors"
	"github.com/gfwl-hub/gfwl-hub-api/pkg/response"
)

const (
	csrfCookieName = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	csrfCookieAge  = 12 * 60 * 60
)

// CSRF implements the signed double-submit pattern for browser-facing routes.
// Safe methods receive a fresh HMAC-signed cookie when none is present; unsafe
// methods must echo the cookie value in the X-CSRF-Token header.
func CSRF(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			if _, err := c.Cookie(csrfCookieName); err != nil {
				if token, err := newCSRFToken(key); err == nil {
					c.SetSameSite(http.SameSiteLaxMode)
					c.SetCookie(csrfCookieName, token, csrfCookieAge, "/", "", false, false)
				}
			}
			c.Next()
			return
		}

		cookie, err := c.Cookie(csrfCookieName)
		if err != nil || !validCSRFToken(key, cookie) {
			response.Error(c, appErrors.ErrInvalidCSRF)
			c.Abort()
			return
		}
		header := c.GetHeader(csrfHeaderName)
		if header == "" || !hmac.Equal([]byte(header), []byte(cookie)) {
			response.Error(c, appErrors.ErrInvalidCSRF)
			c.Abort()
			return
		}
		c.Next()
	}
}

func newCSRFToken(key []byte) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	value := base64.RawURLEncoding.EncodeToString(nonce)
	return value + "." + signCSRF(key, value), nil
}

func validCSRFToken(key []byte, token string) bool {
	value, signature, ok := strings.Cut(token, ".")
	if !ok || value == "" {
		return false
	}
	return hmac.Equal([]byte(signature), []byte(signCSRF(key, value)))
}

func signCSRF(key []byte, value string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
