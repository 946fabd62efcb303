package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ms-slunicko/rotation-api/internal/config"
)

func TestSessionRefresh(t *testing.T) {
	cfg := &config.Config{JWTSecret: "test-secret"}
	handler := NewAuthHandler(cfg, nil)

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	signToken := func(expiresIn time.Duration) string {
		claims := jwt.MapClaims{
			"user_id": uint(1),
			"exp":     time.Now().Add(expiresIn).Unix(),
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		tokenString, _ := token.SignedString([]byte(cfg.JWTSecret))
		return tokenString
	}

	t.Run("TokenRenewed", func(t *testing.T) {
		// Expires in 11 hours, less than TokenDuration/2 = 12 hours.
		tokenString := signToken(11 * time.Hour)

		req, _ := http.NewRequest("GET", "/", nil)
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: tokenString})
		rr := httptest.NewRecorder()

		handler.SessionRefresh(nextHandler).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status OK, got %v", rr.Code)
		}

		found := false
		for _, c := range rr.Result().Cookies() {
			if c.Name == "auth_token" {
				found = true
				if c.Value == tokenString {
					t.Errorf("expected new token value, but got the old one")
				}
				break
			}
		}
		if !found {
			t.Errorf("expected new auth_token cookie to be set")
		}
	})

	t.Run("TokenNotRenewed", func(t *testing.T) {
		// Expires in 13 hours, more than TokenDuration/2 = 12 hours.
		tokenString := signToken(13 * time.Hour)

		req, _ := http.NewRequest("GET", "/", nil)
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: tokenString})
		rr := httptest.NewRecorder()

		handler.SessionRefresh(nextHandler).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status OK, got %v", rr.Code)
		}
		for _, c := range rr.Result().Cookies() {
			if c.Name == "auth_token" {
				t.Errorf("did not expect a new auth_token cookie to be set")
			}
		}
	})

	t.Run("MissingOrInvalidCookiePassesThrough", func(t *testing.T) {
		for name, cookie := range map[string]*http.Cookie{
			"NoCookie":     nil,
			"GarbageToken": {Name: "auth_token", Value: "not-a-jwt"},
		} {
			req, _ := http.NewRequest("GET", "/", nil)
			if cookie != nil {
				req.AddCookie(cookie)
			}
			rr := httptest.NewRecorder()

			handler.SessionRefresh(nextHandler).ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Errorf("%s: expected the request to pass through, got %v", name, rr.Code)
			}
			if len(rr.Result().Cookies()) != 0 {
				t.Errorf("%s: expected no cookie to be set", name)
			}
		}
	})
}
