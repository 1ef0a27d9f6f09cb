// Package dsn builds database connection strings from the configuration.
package dsn

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/evalboard/evalboard/internal/config"
)

const (
	defaultMySQLPort    = 3306
	defaultPostgresPort = 5432
)

// MySQL builds a go-sql-driver DSN, e.g. user:pw@tcp(host:3306)/name?extras.
func MySQL(cfg *config.Config) string {
	port := cfg.DB.Port
	if port == 0 {
		port = defaultMySQLPort
	}

	out := fmt.Sprintf("%s:%s@tcp(%s)/%s",
		cfg.DB.User,
		cfg.DB.Password,
		net.JoinHostPort(cfg.DB.Host, strconv.Itoa(port)),
		cfg.DB.Name,
	)

	if cfg.DB.Extras != "" {
		out += "?" + cfg.DB.Extras
	}

	return out
}

// Postgres builds a postgres:// connection URI.
func Postgres(cfg *config.Config) string {
	port := cfg.DB.Port
	if port == 0 {
		port = defaultPostgresPort
	}

	query, err := url.ParseQuery(cfg.DB.Extras)
	if err != nil {
		query = url.Values{}
	}

	if cfg.DB.SSLMode != "" {
		query.Set("sslmode", cfg.DB.SSLMode)
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.DB.User, cfg.DB.Password),
		Host:     net.JoinHostPort(cfg.DB.Host, strconv.Itoa(port)),
		Path:     "/" + cfg.DB.Name,
		RawQuery: query.Encode(),
	}

	return u.String()
}
