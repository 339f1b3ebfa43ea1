package db

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// libpq and pgx parameters pgx understands; anything else in the query string is dropped.
var supportedPGQueryKeys = map[string]struct{}{
	"application_name":         {},
	"channel_binding":          {},
	"client_encoding":          {},
	"connect_timeout":          {},
	"default_query_exec_mode":  {},
	"gssencmode":               {},
	"host":                     {},
	"keepalives":               {},
	"keepalives_count":         {},
	"keepalives_idle":          {},
	"keepalives_interval":      {},
	"krbsrvname":               {},
	"options":                  {},
	"passfile":                 {},
	"port":                     {},
	"service":                  {},
	"sslcert":                  {},
	"sslcrl":                   {},
	"sslkey":                   {},
	"sslmode":                  {},
	"sslpassword":              {},
	"sslrootcert":              {},
	"statement_cache_capacity": {},
	"target_session_attrs":     {},
}

const defaultMaxConns = 10

// Connect opens the process-wide pool. maxConns <= 0 keeps the default.
func Connect(ctx context.Context, rawURL string, maxConns int) (*pgxpool.Pool, error) {
	cfg, err := parsePoolConfig(rawURL, maxConns)
	if err != nil {
		return nil, err
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}

func parsePoolConfig(rawURL string, maxConns int) (*pgxpool.Config, error) {
	normalized := normalizeDatabaseURL(rawURL)
	if normalized == "" {
		return nil, errors.New("database url is empty")
	}
	cfg, err := pgxpool.ParseConfig(normalized)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	cfg.MaxConns = int32(maxConns)
	cfg.MaxConnIdleTime = 5 * time.Minute
	return cfg, nil
}

// SQLAlchemy-style URLs carried over from older deployments.
var driverSchemePrefixes = []string{
	"postgresql+psycopg2://",
	"postgresql+psycopg://",
	"postgresql+asyncpg://",
	"postgresql://",
}

func normalizeDatabaseURL(rawURL string) string {
	normalized := strings.TrimSpace(rawURL)
	for _, prefix := range driverSchemePrefixes {
		if strings.HasPrefix(normalized, prefix) {
			normalized = "postgres://" + strings.TrimPrefix(normalized, prefix)
			break
		}
	}

	parsed, err := url.Parse(normalized)
	if err != nil {
		return normalized
	}
	if parsed.Scheme != "postgres" && parsed.Scheme != "postgresql" {
		return normalized
	}

	queries := parsed.Query()
	filtered := make(url.Values)
	for key, values := range queries {
		if _, ok := supportedPGQueryKeys[key]; ok {
			for _, v := range values {
				filtered.Add(key, v)
			}
		}
	}
	parsed.RawQuery = filtered.Encode()
	return parsed.String()
}
