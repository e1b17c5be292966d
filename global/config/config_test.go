package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")

	cfg, err := Load("does-not-exist.env")
	req.NoError(err)

	req.Equal(5000, cfg.Port)
	req.Equal(":5000", cfg.Addr())
	req.Equal("tripchat", cfg.MongoDatabase)
	req.Equal(168*time.Hour, cfg.JWTTTL)
	req.Equal([]string{"http://localhost:5173", "http://localhost:5174"}, cfg.Origins())
	req.Empty(cfg.RedisAddr)
	req.Equal(5.0, cfg.AuthRatePerSec)
	req.Equal(20, cfg.AuthRateBurst)
	req.Equal(10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_RejectsShortSecret(t *testing.T) {
	req := require.New(t)
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "short")

	_, err := Load("does-not-exist.env")
	req.Error(err)
}

func TestLoad_MissingRequired(t *testing.T) {
	req := require.New(t)
	t.Setenv("MONGO_URI", "")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")

	_, err := Load("does-not-exist.env")
	req.Error(err)
}
