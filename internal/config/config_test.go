package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "rnaseqdatabase", cfg.Bucket)
	assert.Equal(t, "vendor-data/", cfg.BasePrefix)
	assert.Equal(t, 5000, cfg.MaxKeys)
	assert.Equal(t, time.Hour, cfg.PresignTTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("RNASEQ_S3_BUCKET", "otherbucket")
	t.Setenv("RNASEQ_BASE_PREFIX", "lab-data")
	t.Setenv("RNASEQ_MAX_KEYS", "100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.Equal(t, "otherbucket", cfg.Bucket)
	// prefix gets a trailing slash
	assert.Equal(t, "lab-data/", cfg.BasePrefix)
	assert.Equal(t, 100, cfg.MaxKeys)
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "seqbrowse.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bucket: yamlbucket\nmax_keys: 42\n"), 0o644))

	t.Setenv("SEQBROWSE_CONFIG", path)
	t.Setenv("RNASEQ_MAX_KEYS", "7") // env wins over file

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "yamlbucket", cfg.Bucket)
	assert.Equal(t, 7, cfg.MaxKeys)
}

func TestLoad_RejectsNonPositiveMaxKeys(t *testing.T) {
	clearEnv(t)
	t.Setenv("RNASEQ_MAX_KEYS", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsUnparseableMaxKeys(t *testing.T) {
	clearEnv(t)
	t.Setenv("RNASEQ_MAX_KEYS", "five thousand")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RNASEQ_MAX_KEYS")
}

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"vendor-data", "vendor-data/"},
		{"vendor-data/", "vendor-data/"},
		{"/vendor-data", "vendor-data/"},
		{"  vendor-data/proj1  ", "vendor-data/proj1/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePrefix(tt.in))
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"SEQBROWSE_CONFIG", "AWS_REGION", "RNASEQ_S3_BUCKET", "RNASEQ_BASE_PREFIX",
		"RNASEQ_S3_ENDPOINT", "RNASEQ_MAX_KEYS", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY",
		"SEQBROWSE_WEB_ROOT", "SEQBROWSE_DOWNLOAD_DIR", "SEQBROWSE_LISTEN_ADDR",
		"SEQBROWSE_LOG_LEVEL", "SEQBROWSE_LOG_FORMAT",
	} {
		t.Setenv(name, "")
	}
}
