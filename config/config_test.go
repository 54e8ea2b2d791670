package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultConfig(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)
	require.NotEmpty(t, config)

	assert.False(t, config.Server.ReadTimeout.String() == "")
	assert.False(t, config.Server.WriteTimeout.String() == "")
	assert.False(t, config.Server.ShutdownTimeout.String() == "")
	assert.False(t, config.Server.APIHost == "")

	assert.Equal(t, "memory", config.Services.StorageProvider)
	assert.Equal(t, VerifierModeTrustedRoot, config.Services.VerificationConfig.Mode)
	assert.Equal(t, 30*time.Second, config.Services.VerificationConfig.ProofCheckTimeout)
	assert.NotEmpty(t, config.Services.LedgerConfig.CredentialFile)
}

func TestLoadConfigFromFile(t *testing.T) {
	config, err := LoadConfig(ConfigFileName)
	require.NoError(t, err)
	require.NotEmpty(t, config)

	assert.Equal(t, "memory", config.Services.StorageProvider)
	assert.Equal(t, "config/credentials.json", config.Services.LedgerConfig.CredentialFile)
	assert.Equal(t, VerifierModeTrustedRoot, config.Services.VerificationConfig.Mode)
	assert.Equal(t, 30*time.Second, config.Services.VerificationConfig.ProofCheckTimeout)
}

func TestLoadConfigRejectsNonTOML(t *testing.T) {
	_, err := LoadConfig("config.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() ZKIDServiceConfig {
		return ZKIDServiceConfig{
			Server: ServerConfig{Environment: EnvironmentDev},
			Services: ServicesConfig{
				StorageProvider: "memory",
				VerificationConfig: VerificationServiceConfig{
					Mode: VerifierModeTrustedRoot,
				},
			},
		}
	}

	t.Run("dev with trusted-root verification is allowed", func(t *testing.T) {
		config := base()
		assert.NoError(t, config.Validate())
	})

	t.Run("unknown environment is rejected", func(t *testing.T) {
		config := base()
		config.Server.Environment = "staging"
		assert.Error(t, config.Validate())
	})

	t.Run("unknown verification mode is rejected", func(t *testing.T) {
		config := base()
		config.Services.VerificationConfig.Mode = "lenient"
		assert.Error(t, config.Validate())
	})

	t.Run("prod requires strict verification", func(t *testing.T) {
		config := base()
		config.Server.Environment = EnvironmentProd
		config.Services.StorageProvider = "redis"
		err := config.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "strict")
	})

	t.Run("prod requires durable storage", func(t *testing.T) {
		config := base()
		config.Server.Environment = EnvironmentProd
		config.Services.VerificationConfig.Mode = VerifierModeStrict
		config.Services.VerificationConfig.VerificationKeyFile = "vkey.json"
		err := config.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "durable storage")
	})

	t.Run("strict mode requires a verification key", func(t *testing.T) {
		config := base()
		config.Services.VerificationConfig.Mode = VerifierModeStrict
		err := config.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "verification key")
	})

	t.Run("prod with strict verification and durable storage is allowed", func(t *testing.T) {
		config := base()
		config.Server.Environment = EnvironmentProd
		config.Services.StorageProvider = "bolt"
		config.Services.VerificationConfig.Mode = VerifierModeStrict
		config.Services.VerificationConfig.VerificationKeyFile = "vkey.json"
		assert.NoError(t, config.Validate())
	})
}
