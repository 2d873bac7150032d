package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	App         AppConfig         `toml:"app"`
	API         APIConfig         `toml:"api"`
	Library     LibraryConfig     `toml:"library"`
	Palette     PaletteConfig     `toml:"palette"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	AppleMusic AppleMusicConfig `toml:"apple_music"`
}

// AppleMusicConfig holds the developer token (server-held) and the user token obtained through authorization.
type AppleMusicConfig struct {
	DeveloperToken string `toml:"developer_token" validate:"required"`
	UserToken      string `toml:"user_token"`
}

// AppConfig is the application identity reported to MusicKit.
type AppConfig struct {
	Name  string `toml:"name" default:"libraryPlays" validate:"required"`
	Build string `toml:"build" default:"1978.4.1" validate:"required"`
}

// APIConfig contains vendor and proxy endpoint settings.
type APIConfig struct {
	BaseURL           string  `toml:"base_url" default:"https://api.music.apple.com" validate:"required,url"`
	ProxyURL          string  `toml:"proxy_url" default:"http://localhost:5007" validate:"omitempty,url"`
	RequestsPerSecond float64 `toml:"requests_per_second" default:"10" validate:"gt=0"`
	TimeoutSeconds    int     `toml:"timeout_seconds" default:"30" validate:"gt=0"`
}

// LibraryConfig contains paging, caching and search settings.
type LibraryConfig struct {
	SongPageSize           int  `toml:"song_page_size" default:"100" validate:"gt=0,lte=100"`
	PlaylistPageSize       int  `toml:"playlist_page_size" default:"25" validate:"gt=0,lte=100"`
	PlaylistTracksPageSize int  `toml:"playlist_tracks_page_size" default:"100" validate:"gt=0,lte=100"`
	RecentPageSize         int  `toml:"recent_page_size" default:"10" validate:"gt=0,lte=30"`
	CacheTTLMinutes        int  `toml:"cache_ttl_minutes" default:"30" validate:"gt=0"`
	SearchLimit            int  `toml:"search_limit" default:"5" validate:"gt=0"`
	Concurrency            int  `toml:"concurrency" default:"4" validate:"gt=0"`
	PrefetchPlaylistTracks bool `toml:"prefetch_playlist_tracks"`
}

// PaletteConfig contains artwork color extraction settings.
type PaletteConfig struct {
	SampleCount        int     `toml:"sample_count" default:"6" validate:"gt=0"`
	MinColors          int     `toml:"min_colors" default:"4" validate:"gt=0"`
	LuminanceThreshold float64 `toml:"luminance_threshold" default:"0.6" validate:"gt=0,lte=1"`
	ArtworkSize        int     `toml:"artwork_size" default:"300" validate:"gt=0"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" default:"./libplays.db" validate:"required"`
	MaxOpenConns int    `toml:"max_open_conns" default:"1"`
	MaxIdleConns int    `toml:"max_idle_conns" default:"1"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host          string `toml:"host" default:"localhost"`
	Port          int    `toml:"port" default:"5007" validate:"gt=0,lt=65536"`
	AuthPort      int    `toml:"auth_port" default:"3000" validate:"gt=0,lt=65536"`
	AllowedOrigin string `toml:"allowed_origin" default:"http://localhost:3000"`
}

// Addr returns the host:port the proxy listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CacheTTL returns the configured cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Library.CacheTTLMinutes) * time.Minute
}

// Validate checks the configuration for the fields required to talk to the vendor API.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// OverrideFromEnv applies environment overrides on top of file values.
//
// Recognized: APPLE_DEVELOPER_TOKEN, MUSIC_USER_TOKEN, APP_NAME, APP_BUILD, PORT.
func (c *Config) OverrideFromEnv() {
	if v := os.Getenv("APPLE_DEVELOPER_TOKEN"); v != "" {
		c.Credentials.AppleMusic.DeveloperToken = v
	}
	if v := os.Getenv("MUSIC_USER_TOKEN"); v != "" {
		c.Credentials.AppleMusic.UserToken = v
	}
	if v := os.Getenv("APP_NAME"); v != "" {
		c.App.Name = v
	}
	if v := os.Getenv("APP_BUILD"); v != "" {
		c.App.Build = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Fields missing from the file are filled from their default tags.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return parseConfig(data)
}

func parseConfig(data []byte) (*Config, error) {
	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := defaults.Set(&config); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	config, err := parseConfig(exampleConf)
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML, replacing the file.
//
// The file holds tokens, so it is written owner-readable only.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
