package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_DRIVER", "DB_HOST", "DB_PORT", "JWT_ISSUER",
		"JWT_EXPIRY_HOURS", "BCRYPT_COST", "CRON_ENABLED", "BORROW_OVERDUE_DAYS", "SQLITE_PATH"} {
		t.Setenv(key, "")
	}

	env, err := Get()
	require.NoError(t, err)

	assert.Equal(t, 8080, env.PORT)
	assert.Equal(t, "postgres", env.DB_DRIVER)
	assert.Equal(t, "localhost", env.DB_HOST)
	assert.Equal(t, "5432", env.DB_PORT)
	assert.Equal(t, "lms-api", env.JWT_ISSUER)
	assert.Equal(t, 24, env.JWT_EXPIRY_HOURS)
	assert.Equal(t, 12, env.BCRYPT_COST)
	assert.Equal(t, 14, env.BORROW_OVERDUE_DAYS)
	assert.Equal(t, "lms.db", env.SQLITE_PATH)
	assert.True(t, env.CRON_ENABLED)
}

func TestGetOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("CRON_ENABLED", "false")
	t.Setenv("BORROW_OVERDUE_DAYS", "30")
	t.Setenv("JWT_EXPIRY_HOURS", "not-a-number")
	t.Setenv("BCRYPT_COST", "10")

	env, err := Get()
	require.NoError(t, err)

	assert.Equal(t, 9090, env.PORT)
	assert.Equal(t, "sqlite", env.DB_DRIVER)
	assert.False(t, env.CRON_ENABLED)
	assert.Equal(t, 30, env.BORROW_OVERDUE_DAYS)
	assert.Equal(t, 24, env.JWT_EXPIRY_HOURS)
	assert.Equal(t, 10, env.BCRYPT_COST)
}
