package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionRefresh renews the session cookie of a logged-in caller once the
// token is past half its lifetime, so active users never get logged out.
// It never rejects a request: whether an operation requires authentication
// is decided per operation by Authorize.
func (h *AuthHandler) SessionRefresh(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie("auth_token"); err == nil {
			h.refreshToken(w, cookie.Value)
		}
		next.ServeHTTP(w, r)
	})
}

func (h *AuthHandler) refreshToken(w http.ResponseWriter, tokenString string) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return
	}
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return
	}
	if time.Until(time.Unix(int64(exp), 0)) >= TokenDuration/2 {
		return
	}

	newToken, err := h.GenerateToken(uint(userIDFloat))
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    newToken,
		Expires:  time.Now().Add(TokenDuration),
		HttpOnly: true,
		Path:     "/",
	})
}
