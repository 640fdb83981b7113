// Package credentials resolves the per-connection auth token handed to the
// transport at dial time.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

// Common errors.
var (
	// ErrInsecurePermissions is returned when the credentials file is
	// readable by group or others.
	ErrInsecurePermissions = errors.New("credentials file has insecure permissions")

	// ErrNoToken is returned when no token could be resolved.
	ErrNoToken = errors.New("no auth token available")
)

// Provider resolves an auth token before each connection attempt.
// Resolution may hit disk or the network, so it is context-aware; a failure
// is treated by the owner as a connect error and goes through the normal
// backoff path.
type Provider interface {
	Token(ctx context.Context) (string, error)
}

// Static is a Provider returning a fixed token. Useful for tests and for
// applications that manage token refresh themselves.
type Static string

// Token returns the fixed token.
func (s Static) Token(ctx context.Context) (string, error) {
	if s == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

// Func adapts a plain function to a Provider. This is how the embedding
// application's auth layer is usually wired in.
type Func func(ctx context.Context) (string, error)

// Token invokes the wrapped function.
func (f Func) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// File loads tokens from a credentials.toml file, one section per service:
//
//	[metrics]
//	token = "..."
//
//	[notifications]
//	token = "..."
//
// A top-level [default] section is the fallback when no service section
// matches.
type File struct {
	// Default is the fallback token section.
	Default *ServiceToken `toml:"default"`

	services map[string]*ServiceToken
}

// ServiceToken holds the token for a single service.
type ServiceToken struct {
	Token string `toml:"token"`
}

// StandardPaths returns the standard credential file locations in order of
// priority.
func StandardPaths() []string {
	paths := []string{"credentials.toml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "streamline", "credentials.toml"),
			filepath.Join(home, ".streamline", "credentials.toml"),
		)
	}

	return paths
}

// Load loads credentials from the first available standard location.
// A missing file is not an error; the returned *File is nil in that case.
func Load() (*File, string, error) {
	for _, path := range StandardPaths() {
		if _, err := os.Stat(path); err == nil {
			f, err := LoadFile(path)
			if err != nil {
				return nil, path, err
			}
			return f, path, nil
		}
	}
	return nil, "", nil
}

// LoadFile loads credentials from a specific file.
// Returns ErrInsecurePermissions unless the file is owner read-only (0400).
func LoadFile(path string) (*File, error) {
	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		mode := info.Mode().Perm()
		if mode != 0400 {
			return nil, fmt.Errorf("%w: %s has mode %04o (must be 0400)",
				ErrInsecurePermissions, path, mode)
		}
	}

	var rawData map[string]interface{}
	if _, err := toml.DecodeFile(path, &rawData); err != nil {
		return nil, err
	}

	f := &File{services: make(map[string]*ServiceToken)}

	for key, value := range rawData {
		section, ok := value.(map[string]interface{})
		if !ok {
			continue
		}

		token, _ := section["token"].(string)
		if token == "" {
			continue
		}

		st := &ServiceToken{Token: token}
		if key == "default" {
			f.Default = st
		} else {
			f.services[key] = st
		}
	}

	return f, nil
}

// TokenFor returns the token for a service.
// Priority: [service] section > [default] section > environment variable.
func (f *File) TokenFor(service string) string {
	if f != nil {
		if st, ok := f.services[service]; ok && st.Token != "" {
			return st.Token
		}
		if f.Default != nil && f.Default.Token != "" {
			return f.Default.Token
		}
	}

	return os.Getenv(envVarForService(service))
}

// ProviderFor returns a Provider resolving the token for a service on every
// connection attempt, so a rewritten credentials file takes effect on the
// next reconnect.
func (f *File) ProviderFor(service string) Provider {
	return Func(func(ctx context.Context) (string, error) {
		token := f.TokenFor(service)
		if token == "" {
			return "", fmt.Errorf("%w: service %q", ErrNoToken, service)
		}
		return token, nil
	})
}

// envVarForService returns the environment variable name for a service.
// Generic pattern: STREAMLINE_<SERVICE>_TOKEN.
func envVarForService(service string) string {
	name := strings.ToUpper(strings.ReplaceAll(service, "-", "_"))
	return "STREAMLINE_" + name + "_TOKEN"
}
