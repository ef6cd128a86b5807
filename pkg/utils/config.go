package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("BOOKHUB_JWT_SECRET")
	if secret == "" {
		// dev default (change for demo / production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("BOOKHUB_JWT_ISSUER")
	if issuer == "" {
		issuer = "bookhub"
	}

	// hours; anything unparsable falls back to 24h
	ttl := 24 * time.Hour
	if h, err := strconv.Atoi(strings.TrimSpace(os.Getenv("BOOKHUB_JWT_TTL_HOURS"))); err == nil && h > 0 {
		ttl = time.Duration(h) * time.Hour
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   issuer,
		JWTDuration: ttl,
	}
}

type ServerConfig struct {
	HTTPAddr    string
	TCPAddr     string
	AutoSave    bool
	LenientLoad bool
}

func LoadServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:    envOr("BOOKHUB_HTTP_ADDR", ":8080"),
		TCPAddr:     envOr("BOOKHUB_TCP_ADDR", ":7070"),
		AutoSave:    envBool("BOOKHUB_AUTOSAVE", false),
		LenientLoad: envBool("BOOKHUB_LENIENT_LOAD", false),
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
