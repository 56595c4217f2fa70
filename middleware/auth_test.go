package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"participium/config"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
		expected   string
	}{
		{
			name:       "valid bearer token",
			authHeader: "Bearer test-token-123",
			expected:   "test-token-123",
		},
		{
			name:       "missing bearer prefix",
			authHeader: "test-token-123",
			expected:   "",
		},
		{
			name:       "empty header",
			authHeader: "",
			expected:   "",
		},
		{
			name:       "wrong scheme",
			authHeader: "Basic dXNlcjpwYXNz",
			expected:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractToken(tt.authHeader); got != tt.expected {
				t.Errorf("extractToken(%q) = %q, want %q", tt.authHeader, got, tt.expected)
			}
		})
	}
}

func TestValidateToken(t *testing.T) {
	valid := signToken(t, jwt.MapClaims{
		"user_id": float64(55),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	userID, err := validateToken(valid, []byte(testSecret))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != 55 {
		t.Errorf("user id = %d, want 55", userID)
	}

	expired := signToken(t, jwt.MapClaims{
		"user_id": float64(55),
		"exp":     time.Now().Add(-time.Hour).Unix(),
	}, testSecret)
	if _, err := validateToken(expired, []byte(testSecret)); err == nil {
		t.Error("expected an error for an expired token")
	}

	wrongKey := signToken(t, jwt.MapClaims{"user_id": float64(55)}, "other-secret")
	if _, err := validateToken(wrongKey, []byte(testSecret)); err == nil {
		t.Error("expected an error for a token signed with another key")
	}

	noUser := signToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}, testSecret)
	if _, err := validateToken(noUser, []byte(testSecret)); err == nil {
		t.Error("expected an error for a token without user_id")
	}

	stringID := signToken(t, jwt.MapClaims{"user_id": "42"}, testSecret)
	userID, err = validateToken(stringID, []byte(testSecret))
	if err != nil {
		t.Fatalf("unexpected error for string user_id: %v", err)
	}
	if userID != 42 {
		t.Errorf("user id = %d, want 42", userID)
	}
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWTSecret: testSecret}

	router := gin.New()
	router.GET("/protected", AuthMiddleware(cfg), func(c *gin.Context) {
		id, ok := UserID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": id})
	})

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{
			name:           "missing authorization header",
			authHeader:     "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid authorization format",
			authHeader:     "InvalidFormat token123",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "garbage token",
			authHeader:     "Bearer not-a-jwt",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "valid token",
			authHeader: "Bearer " + signToken(t, jwt.MapClaims{
				"user_id": float64(55),
				"exp":     time.Now().Add(time.Hour).Unix(),
			}, testSecret),
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}
		})
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWTSecret: testSecret}

	router := gin.New()
	router.GET("/open", OptionalAuthMiddleware(cfg), func(c *gin.Context) {
		if id, ok := UserID(c); ok {
			c.JSON(http.StatusOK, gin.H{"user_id": id})
			return
		}
		c.JSON(http.StatusOK, gin.H{})
	})

	// Without a token the request still goes through.
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status without token = %d, want 200", w.Code)
	}

	// With a valid token the user id is resolved.
	req = httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{
		"user_id": float64(55),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}, testSecret))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status with token = %d, want 200", w.Code)
	}
}
