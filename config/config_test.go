package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigRingSizeMatchesSourceDefault(t *testing.T) {
	cfg := DefaultConfig()
	require.EqualValues(t, 4096, cfg.Core.RingSize.Bytes())
}

func TestLoadConfigOverridesDefaultsAndKeepsOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graphd.yaml")
	yamlSrc := []byte(`
core:
  control_socket: /tmp/graphd-test.sock
graph:
  - name: mic
    type: producer
    buffer_count: 8
    buffer_size: 16KB
`)
	require.NoError(t, os.WriteFile(path, yamlSrc, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/graphd-test.sock", cfg.Core.ControlSocket)
	require.EqualValues(t, 4096, cfg.Core.RingSize.Bytes()) // untouched default
	require.Equal(t, []string{"mic"}, cfg.NodeNames())
	require.Equal(t, 8, cfg.Graph[0].BufferCount)
}

func TestLoadConfigMissingFileReturnsError(t *testing.T) {
	_, err := LoadConfig("/nonexistent/graphd.yaml")
	require.Error(t, err)
}
