package config

import (
	"testing"
)

func TestGetEnvironment(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"defaults to development", "", EnvDevelopment},
		{"reads production", "production", EnvProduction},
		{"normalizes case", "PRODUCTION", EnvProduction},
		{"reads staging", "staging", EnvStaging},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PHARMALINK_SERVER_ENVIRONMENT", tt.value)
			if got := GetEnvironment(); got != tt.want {
				t.Errorf("GetEnvironment() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsProductionLike(t *testing.T) {
	t.Setenv("PHARMALINK_SERVER_ENVIRONMENT", "staging")
	if !IsProductionLike() {
		t.Error("IsProductionLike() = false in staging")
	}

	t.Setenv("PHARMALINK_SERVER_ENVIRONMENT", "development")
	if IsProductionLike() {
		t.Error("IsProductionLike() = true in development")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("PHARMALINK_TEST_KEY", "value")
	if got := GetEnv("PHARMALINK_TEST_KEY", "fallback"); got != "value" {
		t.Errorf("GetEnv() = %q, want %q", got, "value")
	}
	if got := GetEnv("PHARMALINK_MISSING_KEY", "fallback"); got != "fallback" {
		t.Errorf("GetEnv() = %q, want %q", got, "fallback")
	}
}
