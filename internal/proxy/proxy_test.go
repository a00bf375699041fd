// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package proxy

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"grimm.is/mavproxy/internal/config"
)

// writeTestConfig binds a throwaway router socket (so transport.New's
// DialUDP has a real destination) and writes a one-rule HCL document
// pointing at it.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	routerSocket, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { routerSocket.Close() })

	hcl := fmt.Sprintf(`
network {
  gcs_listen_addr = "127.0.0.1:0"
  router_addr     = %q
}

logging {
  level = "info"
}

rule "heartbeat-log" {
  message_type = "HEARTBEAT"
  priority     = 1
  direction    = "both"
  actions      = ["forward"]
}
`, routerSocket.LocalAddr().String())

	dir := t.TempDir()
	path := filepath.Join(dir, "mavproxy.hcl")
	require.NoError(t, os.WriteFile(path, []byte(hcl), 0o644))
	return path
}

func TestNewWiresStoreAndPipelineWithoutCtlplane(t *testing.T) {
	path := writeTestConfig(t)
	loaded, err := config.Load(path)
	require.NoError(t, err)

	p, err := New(loaded, "", path)
	require.NoError(t, err)
	require.NotNil(t, p.Pipeline)
	require.Len(t, p.Store.Rules(), 1)
	require.Equal(t, "heartbeat-log", p.Store.Rules()[0].Name)

	r, ok := p.Store.Lookup("heartbeat-log")
	require.True(t, ok)
	require.True(t, r.Enabled())
}

func TestNewFailsOnInvalidRuleSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mavproxy.hcl")
	invalid := `
network {
  gcs_listen_addr = "127.0.0.1:0"
  router_addr     = "127.0.0.1:0"
}

logging {}

rule "bad" {
  message_type = "HEARTBEAT"
  priority     = 1
  actions      = ["modify"]
}
`
	require.NoError(t, os.WriteFile(path, []byte(invalid), 0o644))
	loaded, err := config.Load(path)
	require.NoError(t, err)

	_, err = New(loaded, "", path)
	require.Error(t, err)
}
