package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/champtc/opencti-sub001/errors"
	"github.com/champtc/opencti-sub001/scoring"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, StoreModeMemory, cfg.Store.Mode)
	assert.Equal(t, ":8080", cfg.Gateway.Listen)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `{
		"platform": {"org": "Acme", "id": "prod-1"},
		"store": {"mode": "nats", "nats": {"url": "nats://broker:4222", "subject": "graph.query"}},
		"gateway": {"listen": ":9999"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.Platform.Org, "org normalized to lowercase")
	assert.Equal(t, StoreModeNATS, cfg.Store.Mode)
	assert.Equal(t, "nats://broker:4222", cfg.Store.NATS.URL)
	assert.Equal(t, ":9999", cfg.Gateway.Listen)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.json")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
}

func TestLoad_SchemaRejectsBadMode(t *testing.T) {
	path := writeConfig(t, `{
		"platform": {"org": "acme", "id": "x"},
		"store": {"mode": "carrier-pigeon"}
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestLoad_SchemaRejectsBadLevel(t *testing.T) {
	path := writeConfig(t, `{
		"platform": {"org": "acme", "id": "x"},
		"scoring": {"thresholds": [{"level": "apocalyptic", "min": 9.9}]}
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CYRISK_STORE_MODE", "nats")
	t.Setenv("CYRISK_NATS_URL", "nats://override:4222")
	t.Setenv("CYRISK_GATEWAY_LISTEN", ":7070")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, StoreModeNATS, cfg.Store.Mode)
	assert.Equal(t, "nats://override:4222", cfg.Store.NATS.URL)
	assert.Equal(t, ":7070", cfg.Gateway.Listen)
}

func TestValidate_RequiresOrgAndID(t *testing.T) {
	cfg := Default()
	cfg.Platform.Org = ""
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Platform.ID = ""
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Platform.Org = "white space"
	require.Error(t, cfg.Validate())
}

func TestValidate_NATSModeNeedsURLAndSubject(t *testing.T) {
	cfg := Default()
	cfg.Store.Mode = StoreModeNATS
	cfg.Store.NATS.URL = ""
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Store.Mode = StoreModeNATS
	cfg.Store.NATS.Subject = ""
	require.Error(t, cfg.Validate())
}

func TestThresholds_DefaultWhenEmpty(t *testing.T) {
	cfg := Default()
	th, err := cfg.Thresholds()
	require.NoError(t, err)
	assert.Equal(t, scoring.DefaultThresholds(), th)
}

func TestThresholds_SortedDescending(t *testing.T) {
	cfg := Default()
	cfg.Scoring.Thresholds = []ThresholdConfig{
		{Level: "low", Min: 0.1},
		{Level: "critical", Min: 9.5},
		{Level: "moderate", Min: 4.0},
	}
	th, err := cfg.Thresholds()
	require.NoError(t, err)
	require.Len(t, th, 3)
	assert.Equal(t, scoring.LevelCritical, th[0].Level)
	assert.Equal(t, scoring.LevelModerate, th[1].Level)
	assert.Equal(t, scoring.LevelLow, th[2].Level)
	assert.Equal(t, scoring.LevelModerate, th.Bucket(9.4), "scores under the custom critical floor fall through")
}

func TestThresholds_RejectsUnknownLevel(t *testing.T) {
	cfg := Default()
	cfg.Scoring.Thresholds = []ThresholdConfig{{Level: "mystery", Min: 1.0}}
	_, err := cfg.Thresholds()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}
