package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncany/syncany-go/internal/daemon/handlers"
	"github.com/syncany/syncany-go/internal/daemonmsg"
	"github.com/syncany/syncany-go/internal/wsproto"
)

const testToken = "s3cr3t-token"

// startDaemon runs a daemon on a loopback port and returns its base URL.
func startDaemon(t *testing.T, dataDir string) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	d, err := NewClientDaemon(&Config{
		Addr:          l.Addr().String(),
		AuthToken:     testToken,
		DataDir:       dataDir,
		Watches:       []daemonmsg.Watch{{Root: testRoot, Enabled: true}},
		EnableMetrics: true,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Serve(ctx, l) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
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

func authed(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestClientDaemon_ControlPlane(t *testing.T) {
	base := startDaemon(t, t.TempDir())

	resp, err := http.Get(base + "/v1/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	for i := range 16 {
		resp := authed(t, http.MethodPost, base+"/v1/folder/versions", handlers.AppendVersionRequest{
			Root: testRoot,
			Version: daemonmsg.DatabaseVersion{
				Date:      t0.Add(time.Duration(i) * time.Minute),
				ChangeSet: daemonmsg.ChangeSet{New: []string{fmt.Sprintf("f%d", i)}},
			},
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp = authed(t, http.MethodGet, base+"/v1/folder/log?root="+testRoot, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page handlers.LogResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Len(t, page.Versions, 15)
	assert.True(t, page.HasMore)

	resp = authed(t, http.MethodGet, base+"/v1/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status handlers.StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, 1, status.Watches)

	resp = authed(t, http.MethodGet, base+"/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = authed(t, http.MethodGet, base+"/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClientDaemon_EventSocket(t *testing.T) {
	base := startDaemon(t, t.TempDir())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp := authed(t, http.MethodPost, base+"/v1/folder/versions", handlers.AppendVersionRequest{
		Root:    testRoot,
		Version: daemonmsg.DatabaseVersion{Date: t0, ChangeSet: daemonmsg.ChangeSet{New: []string{"a"}}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	for _, enc := range []wsproto.Encoding{wsproto.EncodingJSON, wsproto.EncodingMsgPack} {
		t.Run(enc.String(), func(t *testing.T) {
			conn, httpResp, err := websocket.Dial(ctx, "ws"+base[len("http"):]+"/v1/events?token="+testToken, &websocket.DialOptions{
				HTTPHeader: http.Header{wsproto.HeaderEncodings: []string{enc.String()}},
			})
			require.NoError(t, err)
			defer conn.CloseNow()
			assert.Equal(t, enc.String(), httpResp.Header.Get(wsproto.HeaderEncoding))

			read := func() *daemonmsg.Message {
				typ, data, err := conn.Read(ctx)
				require.NoError(t, err)
				msg, _, err := wsproto.Unmarshal(typ, data)
				require.NoError(t, err)
				return msg
			}

			hello := read()
			assert.Equal(t, daemonmsg.MsgSystem, hello.Type)

			req := daemonmsg.NewLogFolderRequest(testRoot, daemonmsg.LogOptions{MaxDatabaseVersionCount: 15, MaxFileHistoryCount: 10})
			typ, data, err := wsproto.Marshal(req, enc)
			require.NoError(t, err)
			require.NoError(t, conn.Write(ctx, typ, data))

			reply := read()
			require.Equal(t, daemonmsg.MsgLogFolderResponse, reply.Type)
			assert.Equal(t, req.Id, reply.RequestID())
			assert.Len(t, reply.Data.(*daemonmsg.LogFolderResponse).Versions, 1)

			conn.Close(websocket.StatusNormalClosure, "")
		})
	}
}

func TestClientDaemon_SingleInstancePerDataDir(t *testing.T) {
	dataDir := t.TempDir()
	startDaemon(t, dataDir)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	second, err := NewClientDaemon(&Config{Addr: l.Addr().String(), DataDir: dataDir})
	require.NoError(t, err)

	err = second.Serve(context.Background(), l)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.FileExists(t, filepath.Join(dataDir, lockFileName))
}

func TestConfig_Validate(t *testing.T) {
	_, err := NewClientDaemon(&Config{})
	assert.Error(t, err)

	cfg := &Config{DataDir: t.TempDir()}
	require.NoError(t, cfg.validate())
	assert.Equal(t, DefaultAddr, cfg.Addr)
}
