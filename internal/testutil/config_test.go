package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTestDBConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want TestDBConfig
	}{
		{
			name: "local docker-compose defaults",
			want: TestDBConfig{Host: "localhost", Port: "55432", User: "consultd", Password: "consultd", DBName: "consultd"},
		},
		{
			name: "CI overrides",
			env:  map[string]string{"TEST_DB_HOST": "postgres", "TEST_DB_PORT": "5432", "TEST_DB_NAME": "ci"},
			want: TestDBConfig{Host: "postgres", Port: "5432", User: "consultd", Password: "consultd", DBName: "ci"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"TEST_DB_HOST", "TEST_DB_PORT", "TEST_DB_USER", "TEST_DB_PASSWORD", "TEST_DB_NAME"} {
				t.Setenv(key, tt.env[key])
			}
			assert.Equal(t, tt.want, DefaultTestDBConfig())
		})
	}
}

func TestTestDBConfig_DSN(t *testing.T) {
	t.Setenv("DB_SSL_MODE", "")
	cfg := TestDBConfig{Host: "db", Port: "5432", User: "u", Password: "p@ss", DBName: "consultd"}

	dsn := cfg.DSN("t_abc,public")

	assert.True(t, strings.HasPrefix(dsn, "postgres://u:p%40ss@db:5432/consultd?"), dsn)
	assert.Contains(t, dsn, "sslmode=disable")
	assert.Contains(t, dsn, "search_path=t_abc%2Cpublic")
}
