package main

import (
	"bytes"
	"testing"

	"github.com/MrEthical07/arena/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "arena version")
}

func TestSubcommandsRegistered(t *testing.T) {
	cmd := rootCmd()
	for _, name := range []string{"api", "web", "promote", "version"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestRequireSecret(t *testing.T) {
	cfg := config.Default()
	_, err := requireSecret(&cfg)
	assert.Error(t, err)

	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	secret, err := requireSecret(&cfg)
	require.NoError(t, err)
	assert.Len(t, secret, 32)
}

func TestEngineConfigFromProcessConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Auth.FrontendURL = "https://arena.example"
	secret := []byte("0123456789abcdef0123456789abcdef")

	out := engineConfig(&cfg, secret)
	require.NoError(t, out.Validate())
	assert.Equal(t, cfg.Auth.TokenTTL, out.JWT.AccessTTL)
	assert.Equal(t, "https://arena.example", out.PasswordReset.LinkBase)
	assert.Equal(t, secret, out.JWT.PrivateKey)
}

func TestNewLoggerFormat(t *testing.T) {
	cfg := config.Default()
	assert.NotNil(t, newLogger(&cfg))

	cfg.Environment = config.EnvProduction
	cfg.Log.Format = ""
	assert.NotNil(t, newLogger(&cfg))
}
