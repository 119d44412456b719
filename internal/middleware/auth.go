// Package middleware содержит HTTP middleware сервиса гольф-лиги.
package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	adminCookieName = "admin_session"
	adminCookieTTL  = 24 * time.Hour
)

// AuthMiddleware выполняет проверку административной сессии по подписанному cookie.
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
	}
}

// Middleware пропускает запрос дальше только при действительной административной сессии.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Authenticated(r) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Authenticated сообщает, несёт ли запрос действительную административную сессию.
func (a *AuthMiddleware) Authenticated(r *http.Request) bool {
	cookie, err := r.Cookie(adminCookieName)
	if err != nil {
		return false
	}
	return a.parseCookie(cookie.Value)
}

// SetAuthCookie устанавливает cookie административной сессии.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter) {
	value := a.signTimestamp(time.Now().Unix())

	cookie := &http.Cookie{
		Name:     adminCookieName,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(adminCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

// ClearAuthCookie завершает административную сессию.
func (a *AuthMiddleware) ClearAuthCookie(w http.ResponseWriter) {
	cookie := &http.Cookie{
		Name:     adminCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

func (a *AuthMiddleware) signTimestamp(ts int64) string {
	mac := hmac.New(sha256.New, a.secretKey)
	tsStr := strconv.FormatInt(ts, 10)
	mac.Write([]byte(tsStr))
	signature := mac.Sum(nil)
	return tsStr + "." + hex.EncodeToString(signature)
}

func (a *AuthMiddleware) parseCookie(cookieValue string) bool {
	parts := strings.Split(cookieValue, ".")
	if len(parts) != 2 {
		return false
	}

	tsStr := parts[0]
	signature := parts[1]

	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(tsStr))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return false
	}

	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return false
	}

	issued := time.Unix(ts, 0)
	if time.Since(issued) > adminCookieTTL || issued.After(time.Now().Add(time.Minute)) {
		return false
	}

	return true
}
