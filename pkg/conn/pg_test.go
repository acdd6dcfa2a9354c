package conn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSNDefaults(t *testing.T) {
	dsn, err := Option{}.dsn()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost:5432?sslmode=disable", dsn)
}

func TestDSN(t *testing.T) {
	dsn, err := Option{
		Host:     "db",
		Port:     6543,
		User:     "felix",
		Password: "p@ss",
		Database: "backtest",
		SSLMode:  "require",
		Params:   map[string]string{"application_name": "felix", "": "ignored"},
	}.dsn()
	require.NoError(t, err)
	assert.Equal(t, "postgres://felix:p%40ss@db:6543/backtest?application_name=felix&sslmode=require", dsn)
}

func TestDSNConnString(t *testing.T) {
	dsn, err := Option{ConnString: "host=db user=felix", Host: "ignored"}.dsn()
	require.NoError(t, err)
	assert.Equal(t, "host=db user=felix", dsn)
}

func TestDSNInvalidPort(t *testing.T) {
	_, err := Option{Port: 70000}.dsn()
	assert.Error(t, err)
}

func TestRedactedHidesPassword(t *testing.T) {
	assert.NotContains(t, Option{User: "felix", Password: "secret"}.redacted(), "secret")
	assert.NotContains(t, Option{ConnString: "postgres://felix:secret@db/x"}.redacted(), "secret")
}

func TestNilClient(t *testing.T) {
	var c *Client
	assert.Nil(t, c.DB())
	assert.NoError(t, c.Close())
}
