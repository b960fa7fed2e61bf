package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, 10*time.Second, c.CSPTimeLimit)
	assert.Equal(t, 30, c.CSPMaxDeliveries)
	assert.Equal(t, 50, c.GAPopulation)
	assert.True(t, c.Development())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	body := "PORT=9090\nGA_GENERATIONS=25\nCSP_TIME_LIMIT=250ms\nENVIRONMENT=production\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.env"), []byte(body), 0o600))
	t.Setenv("GA_GENERATIONS", "7")
	t.Setenv("RATE_RPS", "1.5")

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "9090", c.Port)
	assert.Equal(t, 7, c.GAGenerations)
	assert.Equal(t, 250*time.Millisecond, c.CSPTimeLimit)
	assert.Equal(t, 1.5, c.RateRPS)
	assert.False(t, c.Development())
}
