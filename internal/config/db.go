package config

// DB holds the mysql or postgres connection settings used by the storage.
type DB struct {
	Extras   string `mapstructure:"extras"` // query string appended to the DSN
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslMode"` // postgres only
}
