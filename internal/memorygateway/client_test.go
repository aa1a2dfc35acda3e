package memorygateway

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/vc-sentinel/internal/vector"
)

func TestClientAvailableIsFalseWhenGatewayNotRunning(t *testing.T) {
	client := NewClient(filepath.Join(t.TempDir(), "no-such.sock"))
	client.SetTimeout(200 * time.Millisecond)
	assert.False(t, client.Available())
}

func TestClientRememberSavesContentThroughAutoRemember(t *testing.T) {
	_, socketPath := startTestServer(t)
	client := NewClient(socketPath)

	require.NoError(t, client.Remember("fixed the flaky retry test", "debugging session", "fix,test"))

	count, err := client.Count(vector.CollectionKnowledge)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClientRememberRejectsEmptyContent(t *testing.T) {
	_, socketPath := startTestServer(t)
	client := NewClient(socketPath)
	assert.Error(t, client.Remember("", "ctx", "tags"))
}

func TestClientQueryReturnsEmptyResponseWhenNothingMatches(t *testing.T) {
	_, socketPath := startTestServer(t)
	client := NewClient(socketPath)

	resp, err := client.Query("nothing has been stored yet", 5, time.Second)
	require.NoError(t, err)
	assert.Empty(t, resp.IDs)
}
