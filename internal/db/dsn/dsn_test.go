package dsn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evalboard/evalboard/internal/config"
)

func TestMySQL(t *testing.T) {
	tests := []struct {
		name string
		db   config.DB
		want string
	}{
		{
			name: "full",
			db:   config.DB{User: "u", Password: "p", Host: "db", Port: 3307, Name: "evalboard", Extras: "parseTime=True"},
			want: "u:p@tcp(db:3307)/evalboard?parseTime=True",
		},
		{
			name: "default port no extras",
			db:   config.DB{User: "u", Password: "p", Host: "db", Name: "evalboard"},
			want: "u:p@tcp(db:3306)/evalboard",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MySQL(&config.Config{DB: tt.db}))
		})
	}
}

func TestPostgres(t *testing.T) {
	got := Postgres(&config.Config{DB: config.DB{
		User: "u", Password: "p@ss", Host: "db", Name: "evalboard", SSLMode: "disable",
	}})

	assert.Equal(t, "postgres://u:p%40ss@db:5432/evalboard?sslmode=disable", got)
}
