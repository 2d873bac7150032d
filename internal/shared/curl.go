// Utilities for lifting Apple Music tokens out of a browser "Copy as cURL" command.
package shared

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	headerRegex = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	cookieRegex = regexp.MustCompile(`-b\s+'([^']+)'|-b\s+"([^"]+)"`)
)

// CurlHeaders represents parsed headers and cookies from a cURL command.
//
// Header names are lowercased.
type CurlHeaders struct {
	Headers map[string]string
	Cookie  string
}

// MusicTokens holds the credentials a music.apple.com request carries.
type MusicTokens struct {
	DeveloperToken string
	UserToken      string
}

// ParseCurlFile reads a .sh file containing a cURL command and extracts headers.
func ParseCurlFile(filepath string) (*CurlHeaders, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(content)
}

// ParseCurlCommand parses a cURL command string and extracts headers.
func ParseCurlCommand(data []byte) (*CurlHeaders, error) {
	curlCmd := strings.ReplaceAll(string(data), "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	headers := make(map[string]string)
	var headerCookie, cookie string

	for _, match := range headerRegex.FindAllStringSubmatch(curlCmd, -1) {
		key, value, ok := strings.Cut(firstGroup(match), ":")
		if !ok {
			continue
		}

		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		if key == "cookie" {
			if headerCookie == "" {
				headerCookie = value
			}
			continue
		}
		headers[key] = value
	}

	if m := cookieRegex.FindStringSubmatch(curlCmd); m != nil {
		cookie = firstGroup(m)
	} else {
		cookie = headerCookie
	}

	if len(headers) == 0 && cookie == "" {
		return nil, fmt.Errorf("%w: no headers found in curl command", ErrInvalidInput)
	}

	return &CurlHeaders{Headers: headers, Cookie: cookie}, nil
}

func firstGroup(match []string) string {
	if match[1] != "" {
		return match[1]
	}
	return match[2]
}

// Tokens extracts the developer token from the bearer authorization header and the user token from
// the media-user-token (web player) or music-user-token (API) header.
func (c *CurlHeaders) Tokens() (*MusicTokens, error) {
	tokens := &MusicTokens{}

	if auth, ok := c.Headers["authorization"]; ok {
		if scheme, token, found := strings.Cut(auth, " "); found && strings.EqualFold(scheme, "bearer") {
			tokens.DeveloperToken = strings.TrimSpace(token)
		}
	}

	for _, name := range []string{"media-user-token", "music-user-token"} {
		if v := c.Headers[name]; v != "" {
			tokens.UserToken = v
			break
		}
	}

	if tokens.DeveloperToken == "" && tokens.UserToken == "" {
		return nil, fmt.Errorf("%w: no Apple Music tokens in curl headers", ErrMissingCredentials)
	}

	return tokens, nil
}
