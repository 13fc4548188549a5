package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogoutClearsKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PROSPECTOR_SERVER_URL", "")

	cfg := CLIConfig{APIKey: "pk_testkey123", ServerURL: "http://prospect.example:9090", Remote: true}
	if err := saveCLIConfig(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	var out bytes.Buffer
	if err := runLogout(&out, false); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if !strings.Contains(out.String(), "Logged out of http://prospect.example:9090") {
		t.Errorf("output = %q, want the server named", out.String())
	}

	loaded, err := loadCLIConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.APIKey != "" {
		t.Errorf("api_key = %q, want empty after logout", loaded.APIKey)
	}
	if loaded.ServerURL != "http://prospect.example:9090" || !loaded.Remote {
		t.Errorf("config = %+v, want server and remote preserved", loaded)
	}
}

func TestLogoutForgetServer(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PROSPECTOR_SERVER_URL", "")

	if err := saveCLIConfig(CLIConfig{APIKey: "pk_k", ServerURL: "http://prospect.example:9090", Remote: true}); err != nil {
		t.Fatalf("save: %v", err)
	}

	var out bytes.Buffer
	if err := runLogout(&out, true); err != nil {
		t.Fatalf("logout: %v", err)
	}

	loaded, err := loadCLIConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != (CLIConfig{}) {
		t.Errorf("config = %+v, want empty", loaded)
	}
	if remoteByDefault() {
		t.Error("remote default should be cleared")
	}
	if !strings.Contains(out.String(), "read commands use the warehouse") {
		t.Errorf("output = %q", out.String())
	}
}

func TestLogoutWhenNotLoggedIn(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PROSPECTOR_SERVER_URL", "")

	var out bytes.Buffer
	if err := runLogout(&out, false); err != nil {
		t.Fatalf("logout with no config: %v", err)
	}
	if out.String() != "Not logged in to http://localhost:8080.\n" {
		t.Errorf("output = %q", out.String())
	}
}
