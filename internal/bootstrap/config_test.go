package bootstrap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/printmaker/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("SPOOL_DIR", t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.DBDriverMemory, cfg.DB.Driver)
	assert.Equal(t, config.QuotaSourceStatic, cfg.Quota.Source)
	assert.Equal(t, 120*time.Second, cfg.Pipeline.WatchTimeout)
	assert.Equal(t, 3, cfg.Pipeline.ColourPageCost)
	assert.Equal(t, []string{"purger"}, GetEnabledServices(&cfg))
}

func TestLoadConfig_FailsFast(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown driver", env: map[string]string{"DB_DRIVER": "oracle"}},
		{name: "redis quota without redis", env: map[string]string{"DB_DRIVER": "memory", "QUOTA_SOURCE": "redis"}},
		{name: "unknown analyzer", env: map[string]string{"DB_DRIVER": "memory", "ANALYZER": "ocr"}},
		{name: "unknown service", env: map[string]string{"DB_DRIVER": "memory", "SERVICES": "http"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestGetEnabledServices(t *testing.T) {
	assert.Empty(t, GetEnabledServices(nil))
	assert.Empty(t, GetEnabledServices(&config.AppConfig{Services: "none"}))
	assert.Empty(t, GetEnabledServices(&config.AppConfig{Services: "bogus"}))
	assert.Equal(t, []string{"purger"}, GetEnabledServices(&config.AppConfig{Services: " purger , "}))
}
