package sentinelcfg

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntimeConfigFromEnvAppliesOverrides(t *testing.T) {
	t.Setenv("SENTINEL_STATE_DIR", "/tmp/sentinel-state")
	t.Setenv("SENTINEL_GATEWAY_SOCKET", "/tmp/gw.sock")

	cfg := RuntimeConfigFromEnv()
	assert.Equal(t, "/tmp/sentinel-state", cfg.StateDir)
	assert.Equal(t, "/tmp/gw.sock", cfg.GatewaySocket)
}

func TestDefaultRuntimeConfigRootsUnderSentinelDir(t *testing.T) {
	cfg := DefaultRuntimeConfig()
	assert.Equal(t, filepath.Base(cfg.StateDir), ".sentinel")
	assert.Equal(t, filepath.Join(cfg.StateDir, "audit"), cfg.AuditDir)
}
