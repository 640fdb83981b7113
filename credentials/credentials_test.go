package credentials

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// --- Unit Tests ---

func TestStatic(t *testing.T) {
	token, err := Static("secret").Token(context.Background())
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if token != "secret" {
		t.Errorf("token = %q", token)
	}

	if _, err := Static("").Token(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Errorf("empty static error = %v, want ErrNoToken", err)
	}
}

func TestFunc(t *testing.T) {
	calls := 0
	p := Func(func(ctx context.Context) (string, error) {
		calls++
		return "t1", nil
	})

	token, err := p.Token(context.Background())
	if err != nil || token != "t1" {
		t.Fatalf("Token = %q, %v", token, err)
	}
	if calls != 1 {
		t.Errorf("calls = %d", calls)
	}
}

func writeCredsFile(t *testing.T, mode os.FileMode, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, mode); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeCredsFile(t, 0400, `
[default]
token = "fallback-token"

[metrics]
token = "metrics-token"
`)

	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}

	tests := []struct {
		service string
		want    string
	}{
		{"metrics", "metrics-token"},
		{"notifications", "fallback-token"},
	}
	for _, tt := range tests {
		if got := f.TokenFor(tt.service); got != tt.want {
			t.Errorf("TokenFor(%q) = %q, want %q", tt.service, got, tt.want)
		}
	}
}

func TestLoadFile_InsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits not enforced on windows")
	}

	path := writeCredsFile(t, 0644, `
[metrics]
token = "leaky"
`)

	if _, err := LoadFile(path); !errors.Is(err, ErrInsecurePermissions) {
		t.Errorf("error = %v, want ErrInsecurePermissions", err)
	}
}

func TestTokenFor_EnvFallback(t *testing.T) {
	t.Setenv("STREAMLINE_NOTIFICATIONS_TOKEN", "env-token")

	var f *File // nil file falls back to the environment
	if got := f.TokenFor("notifications"); got != "env-token" {
		t.Errorf("TokenFor = %q, want env-token", got)
	}
}

func TestProviderFor(t *testing.T) {
	path := writeCredsFile(t, 0400, `
[metrics]
token = "metrics-token"
`)
	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}

	token, err := f.ProviderFor("metrics").Token(context.Background())
	if err != nil || token != "metrics-token" {
		t.Errorf("Token = %q, %v", token, err)
	}

	if _, err := f.ProviderFor("missing").Token(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Errorf("missing service error = %v, want ErrNoToken", err)
	}
}
