package sentinelcfg

import (
	"os"
	"path/filepath"
)

// RuntimeConfig is the set of filesystem paths and socket addresses every
// cmd/sentinel-* binary needs to find the same runtime state. Loaded from
// SENTINEL_* environment variables, matching the VC_WATCHDOG_* env-override
// idiom in internal/watchdog/config.go.
type RuntimeConfig struct {
	StateDir      string
	AuditDir      string
	VectorDBPath  string
	GatewaySocket string
	DaemonSocket  string
	LiveStatePath string
}

// DefaultRuntimeConfig roots every path under ~/.sentinel (or ./.sentinel
// if the home directory can't be resolved), matching the teacher's own
// fallback-to-cwd behavior when home lookup fails.
func DefaultRuntimeConfig() RuntimeConfig {
	root := ".sentinel"
	if home, err := os.UserHomeDir(); err == nil {
		root = filepath.Join(home, ".sentinel")
	}
	return RuntimeConfig{
		StateDir:      root,
		AuditDir:      filepath.Join(root, "audit"),
		VectorDBPath:  filepath.Join(root, "memory.db"),
		GatewaySocket: filepath.Join(root, "gateway.sock"),
		DaemonSocket:  filepath.Join(root, "daemon.sock"),
		LiveStatePath: filepath.Join(root, "live_state.yaml"),
	}
}

// RuntimeConfigFromEnv overrides DefaultRuntimeConfig with any of
// SENTINEL_STATE_DIR, SENTINEL_AUDIT_DIR, SENTINEL_VECTOR_DB,
// SENTINEL_GATEWAY_SOCKET, SENTINEL_DAEMON_SOCKET, SENTINEL_LIVE_STATE
// that are set.
func RuntimeConfigFromEnv() RuntimeConfig {
	cfg := DefaultRuntimeConfig()
	if v := os.Getenv("SENTINEL_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
	if v := os.Getenv("SENTINEL_AUDIT_DIR"); v != "" {
		cfg.AuditDir = v
	}
	if v := os.Getenv("SENTINEL_VECTOR_DB"); v != "" {
		cfg.VectorDBPath = v
	}
	if v := os.Getenv("SENTINEL_GATEWAY_SOCKET"); v != "" {
		cfg.GatewaySocket = v
	}
	if v := os.Getenv("SENTINEL_DAEMON_SOCKET"); v != "" {
		cfg.DaemonSocket = v
	}
	if v := os.Getenv("SENTINEL_LIVE_STATE"); v != "" {
		cfg.LiveStatePath = v
	}
	return cfg
}
