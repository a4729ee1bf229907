package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("IDENTITY_API_URL", "")
	t.Setenv("DELIVERY_API_URL", "")
	t.Setenv("HTTP_TIMEOUT", "")

	c := Load()
	if c.IdentityURL != "http://localhost:5005" {
		t.Fatalf("unexpected identity URL %q", c.IdentityURL)
	}
	if c.DeliveryURL != "http://localhost:5004" {
		t.Fatalf("unexpected delivery URL %q", c.DeliveryURL)
	}
	if c.HTTPTimeout != 15*time.Second {
		t.Fatalf("unexpected timeout %v", c.HTTPTimeout)
	}
	if c.TokenPath == "" {
		t.Fatal("expected a default token path")
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("IDENTITY_API_URL", "http://identity.internal:8080")
	t.Setenv("HTTP_TIMEOUT", "3s")

	c := Load()
	if c.IdentityURL != "http://identity.internal:8080" {
		t.Fatalf("override ignored, got %q", c.IdentityURL)
	}
	if c.HTTPTimeout != 3*time.Second {
		t.Fatalf("expected 3s timeout, got %v", c.HTTPTimeout)
	}
}

func TestLoad_MalformedTimeoutFallsBack(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "soon-ish")

	if c := Load(); c.HTTPTimeout != 15*time.Second {
		t.Fatalf("malformed timeout must fall back to the default, got %v", c.HTTPTimeout)
	}
}
