package main

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/syncany/syncany-go/internal/daemon"
	"github.com/syncany/syncany-go/internal/daemonmsg"
)

var ansiRE = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiRE.ReplaceAllString(s, "")
}

const testToken = "cli-test-token"

// startDaemon runs a daemon for watches on a loopback port and returns its base URL.
func startDaemon(t *testing.T, watches ...daemonmsg.Watch) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	d, err := daemon.NewClientDaemon(&daemon.Config{
		Addr:      l.Addr().String(),
		AuthToken: testToken,
		DataDir:   t.TempDir(),
		Watches:   watches,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Serve(ctx, l) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(15 * time.Second):
			t.Error("daemon did not stop")
		}
	})

	base := "http://" + l.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
	return base
}
