package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "dev-token", cfg.APIToken)
	assert.True(t, cfg.BinanceTestOrders)
	assert.Contains(t, cfg.DatabaseConnStr, "dbname=rebalancer")
}

func TestLoad_ExplicitConnStr(t *testing.T) {
	t.Setenv("DB_CONN_STR", "host=db port=5432 user=app password=s3cret dbname=live sslmode=require")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5432 user=app password=s3cret dbname=live sslmode=require", cfg.DatabaseConnStr)
}

func TestLoad_AssembledConnStr(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "coins")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Contains(t, cfg.DatabaseConnStr, "host=db.internal")
	assert.Contains(t, cfg.DatabaseConnStr, "dbname=coins")
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("PORT", "-1")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_EmptyTokenRejected(t *testing.T) {
	cfg := &Config{Port: 8080, APIToken: ""}
	assert.Error(t, cfg.Validate())
}
