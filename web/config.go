package web

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the HTTP server settings. Every field is filled from
// MSG2PDF_* environment variables.
type Config struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port int    `envconfig:"PORT" default:"8080"`
	// MaxUploadSize bounds the request body (50 MB default).
	MaxUploadSize int `envconfig:"MAX_UPLOAD_SIZE" default:"52428800"`
	// Workers bounds concurrent conversions for batch uploads.
	Workers     int    `envconfig:"WORKERS" default:"4"`
	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"*"`
	// InlineRemoteImages enables fetching http(s) images referenced
	// by message bodies. Off by default.
	InlineRemoteImages bool   `envconfig:"INLINE_REMOTE_IMAGES" default:"false"`
	LogLevel           string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig reads .env when present, then the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("MSG2PDF", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
