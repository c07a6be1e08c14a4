package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Library.Path != "./library.json" {
		t.Errorf("library path = %q", cfg.Library.Path)
	}
}

func TestLibraryConfig_EmptyDriverDefaultsJSON(t *testing.T) {
	cfg := LibraryConfig{Path: "x.json"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty driver should default to json: %v", err)
	}
	if cfg.Driver != DriverJSON {
		t.Errorf("driver = %q, want %q", cfg.Driver, DriverJSON)
	}
}

func TestLibraryConfig_UnknownDriver(t *testing.T) {
	cfg := LibraryConfig{Driver: "postgres", Path: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown driver should fail validation")
	}
}

func TestLibraryConfig_PathRequired(t *testing.T) {
	cfg := LibraryConfig{Driver: DriverSQLite}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty path should fail validation")
	}
}

func TestApplicationConfig_LogFormat(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.LogFormat = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown log format should fail validation")
	}
	cfg.App.LogFormat = ""
	if err := cfg.Validate(); err != nil || cfg.App.LogFormat != LogFormatJSON {
		t.Errorf("empty log format: err=%v format=%q", err, cfg.App.LogFormat)
	}
}

func TestHTTPConfig_PortRange(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.HTTP.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("port out of range should fail validation")
	}
}

func TestHTTPConfig_WriteRate(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.HTTP.WriteRate = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative write rate should fail validation")
	}
	cfg.App.HTTP.WriteRate = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("zero write rate disables the limit: %v", err)
	}
}
