package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/jackc/pgx/v5/stdlib"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"timetabledocs/internal/config"
)

// ApplicationName is reported to PostgreSQL so sessions show up in pg_stat_activity.
const ApplicationName = "timetabledocs"

// ErrInvalidConfig is returned when neither a URL nor the required components are configured.
var ErrInvalidConfig = errors.New("invalid database config")

var sqlOpen = sql.Open

// BuildPostgresDSN turns the config into a postgres:// URL.
// A configured URL wins over the individual fields; application_name and connect_timeout
// are added when the URL does not already set them.
func BuildPostgresDSN(c config.DatabaseConfig) (string, error) {
	var u *url.URL
	if c.URL != "" {
		parsed, err := url.Parse(c.URL)
		if err != nil || (parsed.Scheme != "postgres" && parsed.Scheme != "postgresql") || parsed.Host == "" {
			return "", fmt.Errorf("%w: DATABASE_URL must be a postgres:// URL", ErrInvalidConfig)
		}
		u = parsed
	} else {
		if c.Host == "" || c.Port == "" || c.User == "" || c.Name == "" {
			return "", fmt.Errorf("%w: host, port, user, and name are required", ErrInvalidConfig)
		}
		u = &url.URL{
			Scheme: "postgres",
			Host:   c.Host + ":" + c.Port,
			Path:   "/" + c.Name,
			User:   url.User(c.User),
		}
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		}
	}

	q := u.Query()
	if c.URL == "" && c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	if !q.Has("application_name") {
		q.Set("application_name", ApplicationName)
	}
	if c.ConnectTimeoutSec > 0 && !q.Has("connect_timeout") {
		q.Set("connect_timeout", strconv.Itoa(c.ConnectTimeoutSec))
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Open returns a traced pool on the pgx stdlib driver with the configured limits.
// It pings before returning; the ping is bounded by ctx and the connect timeout.
func Open(ctx context.Context, c config.DatabaseConfig) (*sql.DB, error) {
	dsn, err := BuildPostgresDSN(c)
	if err != nil {
		return nil, err
	}

	driverName, err := otelsql.Register("pgx",
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL, semconv.DBNameKey.String(dbName(c))),
		otelsql.WithSQLCommenter(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register otelsql: %w", err)
	}

	db, err := sqlOpen(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	applyPool(db, c)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout(c))
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func dbName(c config.DatabaseConfig) string {
	if c.Name != "" {
		return c.Name
	}
	if u, err := url.Parse(c.URL); err == nil && len(u.Path) > 1 {
		return u.Path[1:]
	}
	return ""
}

func connectTimeout(c config.DatabaseConfig) time.Duration {
	if c.ConnectTimeoutSec > 0 {
		return time.Duration(c.ConnectTimeoutSec) * time.Second
	}
	return 5 * time.Second
}

func applyPool(db *sql.DB, c config.DatabaseConfig) {
	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnMaxLifetimeSec > 0 {
		db.SetConnMaxLifetime(time.Duration(c.ConnMaxLifetimeSec) * time.Second)
	}
}
