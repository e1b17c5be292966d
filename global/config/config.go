package config

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

const defaultOrigins = "http://localhost:5173,http://localhost:5174"

type AppConfig struct {
	Port     int    `env:"PORT,default=5000"`
	NodeID   int    `env:"NODE_ID,default=1"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	MongoURI         string `env:"MONGO_URI,required=true"`
	MongoDatabase    string `env:"MONGO_DATABASE,default=tripchat"`
	MongoMaxPoolSize int    `env:"MONGO_MAX_POOL_SIZE,default=20"`

	JWTSecret    string        `env:"JWT_SECRET,required=true"`
	JWTTTL       time.Duration `env:"JWT_TTL,default=168h"`
	CookieSecure bool          `env:"COOKIE_SECURE,default=false"`
	CORSOrigins  string        `env:"CORS_ORIGINS"` // comma separated

	// optional mirrors; empty disables them
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`
	NatsURL       string `env:"NATS_URL"`

	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`
	CloudinaryFolder    string `env:"CLOUDINARY_FOLDER,default=tripchat_messages"`

	// per client IP on /api/auth; a rate <= 0 disables the limit
	AuthRatePerSec float64 `env:"AUTH_RATE_PER_SEC,default=5"`
	AuthRateBurst  int     `env:"AUTH_RATE_BURST,default=20"`

	SendQueueSize   int           `env:"SEND_QUEUE_SIZE,default=64"`
	MaxBodyBytes    int           `env:"MAX_BODY_BYTES,default=52428800"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Load reads an optional .env file and then the process environment.
// Variables already present in the environment win over the file.
func Load(files ...string) (*AppConfig, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		// a missing .env is normal outside local development
		_ = godotenv.Load(f)
	}

	var cfg AppConfig
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config error: PORT out of range: %d", c.Port)
	}
	if strings.TrimSpace(c.MongoURI) == "" {
		return fmt.Errorf("config error: MONGO_URI is required")
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("config error: JWT_SECRET must be at least 16 bytes")
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 64
	}
	if strings.TrimSpace(c.CORSOrigins) == "" {
		c.CORSOrigins = defaultOrigins
	}
	return nil
}

func (c *AppConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *AppConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
