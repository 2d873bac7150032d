package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseCurlCommand(t *testing.T) {
	tt := []struct {
		name        string
		curlCmd     string
		wantHeaders map[string]string
		wantCookie  string
		wantErr     bool
	}{
		{
			name:    "single header with single quotes",
			curlCmd: `curl -H 'Authorization: Bearer token123' https://api.example.com`,
			wantHeaders: map[string]string{
				"authorization": "Bearer token123",
			},
		},
		{
			name:    "single header with double quotes",
			curlCmd: `curl -H "Authorization: Bearer token123" https://api.example.com`,
			wantHeaders: map[string]string{
				"authorization": "Bearer token123",
			},
		},
		{
			name:    "multiple headers",
			curlCmd: `curl -H 'Content-Type: application/json' -H 'Media-User-Token: abc' https://api.example.com`,
			wantHeaders: map[string]string{
				"content-type":     "application/json",
				"media-user-token": "abc",
			},
		},
		{
			name:        "cookie in -b flag",
			curlCmd:     `curl -b 'session=abc123' https://api.example.com`,
			wantHeaders: map[string]string{},
			wantCookie:  "session=abc123",
		},
		{
			name:    "cookie header is excluded from regular headers",
			curlCmd: `curl -H 'Cookie: session=abc123' -H 'Authorization: Bearer token' https://api.example.com`,
			wantHeaders: map[string]string{
				"authorization": "Bearer token",
			},
			wantCookie: "session=abc123",
		},
		{
			name:        "-b cookie takes precedence over -H cookie",
			curlCmd:     `curl -H 'Cookie: old=value' -b 'new=value' https://api.example.com`,
			wantHeaders: map[string]string{},
			wantCookie:  "new=value",
		},
		{
			name: "multiline curl with backslashes",
			curlCmd: `curl 'https://amp-api.music.apple.com/v1/me/library/songs' \
  -H 'authorization: Bearer dev.jwt.token' \
  -H 'media-user-token: user-token-value' \
  -H 'origin: https://music.apple.com'`,
			wantHeaders: map[string]string{
				"authorization":    "Bearer dev.jwt.token",
				"media-user-token": "user-token-value",
				"origin":           "https://music.apple.com",
			},
		},
		{
			name:    "headers with spaces around colon",
			curlCmd: `curl -H 'Authorization : Bearer token' https://api.example.com`,
			wantHeaders: map[string]string{
				"authorization": "Bearer token",
			},
		},
		{
			name:    "no headers or cookies",
			curlCmd: `curl https://api.example.com`,
			wantErr: true,
		},
		{
			name:    "empty command",
			curlCmd: "",
			wantErr: true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			result, err := ParseCurlCommand([]byte(tc.curlCmd))

			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseCurlCommand() error = %v, wantErr %v", err, tc.wantErr)
			}

			if tc.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}

			if len(result.Headers) != len(tc.wantHeaders) {
				t.Errorf("ParseCurlCommand() headers count = %v, want %v", len(result.Headers), len(tc.wantHeaders))
			}

			for key, want := range tc.wantHeaders {
				if got := result.Headers[key]; got != want {
					t.Errorf("ParseCurlCommand() header[%s] = %v, want %v", key, got, want)
				}
			}

			if result.Cookie != tc.wantCookie {
				t.Errorf("ParseCurlCommand() cookie = %v, want %v", result.Cookie, tc.wantCookie)
			}
		})
	}
}

func TestParseCurlFile(t *testing.T) {
	t.Run("successful file parse", func(t *testing.T) {
		curlFile := filepath.Join(t.TempDir(), "curl.sh")

		curlCmd := `curl -H 'Authorization: Bearer token123' -H 'Content-Type: application/json' https://api.example.com`
		if err := os.WriteFile(curlFile, []byte(curlCmd), 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		result, err := ParseCurlFile(curlFile)
		if err != nil {
			t.Fatalf("ParseCurlFile() error = %v", err)
		}

		if len(result.Headers) != 2 {
			t.Errorf("ParseCurlFile() headers count = %v, want 2", len(result.Headers))
		}
	})

	t.Run("file does not exist", func(t *testing.T) {
		if _, err := ParseCurlFile("/nonexistent/file.sh"); err == nil {
			t.Error("ParseCurlFile() expected error for nonexistent file")
		}
	})
}

func TestCurlHeaders_Tokens(t *testing.T) {
	tests := []struct {
		name      string
		headers   map[string]string
		wantDev   string
		wantUser  string
		wantError bool
	}{
		{
			name:     "web player request",
			headers:  map[string]string{"authorization": "Bearer dev", "media-user-token": "user"},
			wantDev:  "dev",
			wantUser: "user",
		},
		{
			name:     "api request",
			headers:  map[string]string{"authorization": "bearer dev", "music-user-token": "user"},
			wantDev:  "dev",
			wantUser: "user",
		},
		{
			name:    "developer token only",
			headers: map[string]string{"authorization": "Bearer dev"},
			wantDev: "dev",
		},
		{
			name:      "non bearer authorization",
			headers:   map[string]string{"authorization": "Basic abc"},
			wantError: true,
		},
		{
			name:      "no tokens",
			headers:   map[string]string{"accept": "*/*"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := (&CurlHeaders{Headers: tt.headers}).Tokens()

			if tt.wantError {
				if !errors.Is(err, ErrMissingCredentials) {
					t.Errorf("expected ErrMissingCredentials, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tokens.DeveloperToken != tt.wantDev {
				t.Errorf("developer token = %q, want %q", tokens.DeveloperToken, tt.wantDev)
			}
			if tokens.UserToken != tt.wantUser {
				t.Errorf("user token = %q, want %q", tokens.UserToken, tt.wantUser)
			}
		})
	}
}
