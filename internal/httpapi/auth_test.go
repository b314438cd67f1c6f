package httpapi

import (
	"testing"
	"time"
)

// TestJWTAuth tests basic JWT authentication functionality
func TestJWTAuth(t *testing.T) {
	auth := NewJWTAuth("test-secret", "tcp")

	token, expiresAt, err := auth.GenerateToken("test-client", false, 0x5)
	if err != nil {
		t.Fatalf("Expected no error generating token, got %v", err)
	}
	if token == "" {
		t.Error("Expected non-empty token")
	}
	if expiresAt.IsZero() {
		t.Error("Expected valid expiration time")
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("Expected no error validating token, got %v", err)
	}
	if claims.ClientID != "test-client" {
		t.Errorf("Expected ClientID 'test-client', got '%s'", claims.ClientID)
	}
	if claims.IsAdmin {
		t.Error("Expected IsAdmin to be false")
	}
	if claims.Authorization != 0x5 {
		t.Errorf("Expected authorization 0x5, got %#x", claims.Authorization)
	}

	if _, err := auth.ValidateToken("invalid-token"); err == nil {
		t.Error("Expected error for invalid token")
	}
}

func TestJWTAuth_Claims(t *testing.T) {
	auth := NewJWTAuth("claims-secret", "tcp")

	t.Run("admin_token", func(t *testing.T) {
		token, _, err := auth.GenerateToken("ops", true, ^uint64(0))
		if err != nil {
			t.Fatalf("Expected no error generating admin token, got %v", err)
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			t.Fatalf("Expected no error validating admin token, got %v", err)
		}
		if !claims.IsAdmin {
			t.Error("Expected IsAdmin to be true for admin token")
		}
		if claims.Authorization != ^uint64(0) {
			t.Errorf("Expected full authorization, got %#x", claims.Authorization)
		}
	})

	t.Run("token_expiration_fields", func(t *testing.T) {
		_, expiresAt, err := auth.GenerateToken("expiry-test", false, 0)
		if err != nil {
			t.Fatalf("Expected no error generating expiry test token, got %v", err)
		}

		expectedExpiry := time.Now().Add(24 * time.Hour)
		if diff := expiresAt.Sub(expectedExpiry).Abs(); diff > time.Minute {
			t.Errorf("Token expiration time off by more than 1 minute: %v", diff)
		}
	})

	t.Run("bearer_token_handling", func(t *testing.T) {
		token, _, err := auth.GenerateToken("bearer-test", false, 0)
		if err != nil {
			t.Fatalf("Expected no error generating bearer test token, got %v", err)
		}

		claims, err := auth.ValidateToken("Bearer " + token)
		if err != nil {
			t.Fatalf("Expected no error validating bearer token, got %v", err)
		}
		if claims.ClientID != "bearer-test" {
			t.Error("Bearer token validation failed")
		}
	})

	t.Run("other_nukleus_rejected", func(t *testing.T) {
		other := NewJWTAuth("claims-secret", "udp")
		token, _, err := other.GenerateToken("app", false, 0)
		if err != nil {
			t.Fatalf("Expected no error generating token, got %v", err)
		}
		if _, err := auth.ValidateToken(token); err == nil {
			t.Error("Expected token issued for another nukleus to be rejected")
		}
	})

	t.Run("empty_client", func(t *testing.T) {
		if _, _, err := auth.GenerateToken("", false, 0); err == nil {
			t.Error("Expected error for empty client id")
		}
	})
}
