package sviconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaultsAndParsesQueries(t *testing.T) {
	path := writeConfig(t, `{
		"queries": [{"keyword": "apple", "geo": "US"}]
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "en-US", cfg.Language)
	assert.Equal(t, "DAY", cfg.Granularity)
	assert.Equal(t, 10.0, cfg.DelaySeconds)
	assert.Equal(t, 3600.0, cfg.WatchIntervalSeconds)
	require.Len(t, cfg.Queries, 1)
	assert.Equal(t, "apple", cfg.Queries[0].Keyword)
}

func TestLoadRejectsMissingQueries(t *testing.T) {
	path := writeConfig(t, `{"language": "en-US"}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `{
		"queries": [{"keyword": "apple"}],
		"bogusField": true
	}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsInvalidGranularity(t *testing.T) {
	path := writeConfig(t, `{
		"queries": [{"keyword": "apple"}],
		"granularity": "WEEK"
	}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
