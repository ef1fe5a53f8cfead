package mcpserver

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeStdio_DispatchesOneLinePerMessage(t *testing.T) {
	d := newTestDispatcher(nil, &stubSnapshot{}, nil)
	in := strings.NewReader("{\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"tools/list\"}\n")
	var out bytes.Buffer

	err := ServeStdio(context.Background(), d, in, &out)
	require.NoError(t, err)

	scanner := bufio.NewScanner(&out)
	require.True(t, scanner.Scan())
	assert.Contains(t, scanner.Text(), `"tools"`)
}

func TestServeStdio_SkipsBlankLines(t *testing.T) {
	d := newTestDispatcher(nil, &stubSnapshot{}, nil)
	in := strings.NewReader("\n\n{\"jsonrpc\":\"2.0\",\"method\":\"notifications/initialized\"}\n\n")
	var out bytes.Buffer

	err := ServeStdio(context.Background(), d, in, &out)
	require.NoError(t, err)
	assert.Empty(t, out.String())
}
