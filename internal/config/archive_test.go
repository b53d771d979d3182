package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadArchive_AbsentSection(t *testing.T) {
	ini := writeIni(t, `[DEFAULT]
cimc_password = secret
`)
	cfg, err := LoadArchive(ini)
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoadArchive_NoFile(t *testing.T) {
	cfg, err := LoadArchive("")
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoadArchive_Complete(t *testing.T) {
	ini := writeIni(t, `[archive]
endpoint = https://fsn1.your-objectstorage.com
bucket = wiper-transcripts
access_key = AKIA
secret_key = SECRET
`)
	cfg, err := LoadArchive(ini)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "https://fsn1.your-objectstorage.com", cfg.Endpoint)
	assert.Equal(t, "wiper-transcripts", cfg.Bucket)
	assert.Equal(t, "us-east-1", cfg.Region, "region defaults when unset")
}

func TestLoadArchive_MissingKeys(t *testing.T) {
	ini := writeIni(t, `[archive]
endpoint = https://fsn1.your-objectstorage.com
bucket = wiper-transcripts
`)
	_, err := LoadArchive(ini)
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, []string{"archive.access_key", "archive.secret_key"}, cfgErr.Missing)
}
