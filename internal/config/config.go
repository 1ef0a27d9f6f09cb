// Package config reads etc/main.toml, environment overrides and validates the result.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. EVALBOARD_AUTH_ANONKEY.
	EnvPrefix = "EVALBOARD"

	// EnvConfigJSON holds a JSON document merged on top of the file config.
	EnvConfigJSON = EnvPrefix + "_CONFIG_JSON"

	masked = "********"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("title", "evalboard")

	v.SetDefault("log.logLevel", "info")
	v.SetDefault("log.appName", "evalboard")
	v.SetDefault("log.serviceName", "evalboard")
	v.SetDefault("log.console.enabled", true)
	v.SetDefault("log.console.useConsoleWriter", false)
	v.SetDefault("log.disableCheckAlive", true)

	v.SetDefault("webserver.port", 3000)
	v.SetDefault("webserver.url", "http://localhost:3000")
	v.SetDefault("webserver.shutDownTime", 5)
	v.SetDefault("webserver.metricsEnabled", false)

	v.SetDefault("auth.url", "")
	v.SetDefault("auth.anonKey", "")
	v.SetDefault("auth.cookieName", "")
	v.SetDefault("auth.cookieMaxAge", 400*24*time.Hour)
	v.SetDefault("auth.requestTimeout", 10*time.Second)
	v.SetDefault("auth.refreshMargin", 10*time.Second)
	v.SetDefault("auth.verifyJWT", false)
	v.SetDefault("auth.jwksURL", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.oauthProvider", "")

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "./var/evalboard.db")
	v.SetDefault("storage.table", "evalboard_kv")
	v.SetDefault("storage.useGorm", false)
	v.SetDefault("storage.gcInterval", 10*time.Minute)

	v.SetDefault("db.host", "")
	v.SetDefault("db.port", 0)
	v.SetDefault("db.user", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "evalboard")
	v.SetDefault("db.extras", "")
	v.SetDefault("db.sslMode", "disable")
}

// ReadConfig reads main.toml from path, which is either a directory or a
// file. A missing file leaves the defaults, environment overrides still
// apply. An empty path means ./etc/.
func ReadConfig(path string) (Config, error) {
	var c Config

	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = "./etc/"
	}

	if filepath.Ext(path) != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(path)
		v.SetConfigName("main")
		v.SetConfigType("toml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, errors.Wrap(err, "failed to read main config file")
		}

		log.Debug().Str("path", path).Msg("no config file found, using defaults")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if js := os.Getenv(EnvConfigJSON); js != "" {
		v.SetConfigType("json")

		if err := v.MergeConfig(strings.NewReader(js)); err != nil {
			return Config{}, errors.Wrap(err, "failed to merge "+EnvConfigJSON)
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode config")
	}

	return c, Validate(c)
}

// Validate checks struct tags and the cross field rules of c.
func Validate(c Config) error {
	invalidErrMessage := "invalid config"

	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, invalidErrMessage)
	}

	switch c.Storage.Driver {
	case "mysql", "postgres":
		if c.DB.Host == "" {
			return errors.Wrap(ErrDBHostEmpty, invalidErrMessage)
		}
	case "sqlite":
		if c.Storage.Path == "" {
			return errors.Wrap(ErrSQLitePathEmpty, invalidErrMessage)
		}
	}

	return nil
}

// DumpConfigJSON renders c as indented JSON with secrets masked.
func DumpConfigJSON(c Config) (string, error) {
	var buffer bytes.Buffer

	if c.Auth.AnonKey != "" {
		c.Auth.AnonKey = masked
	}

	if c.DB.Password != "" {
		c.DB.Password = masked
	}

	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}
