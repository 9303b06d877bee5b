package daemonmsg

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_JSONDecodesTypedPayload(t *testing.T) {
	date := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	msg := NewLogFolderResponse("req-1", "/home/alice/Sync", []DatabaseVersion{
		{Date: date, Client: "laptop", ChangeSet: ChangeSet{New: []string{"a.txt"}}},
	})

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, msg.Id, decoded.Id)
	assert.Equal(t, MsgLogFolderResponse, decoded.Type)
	resp, ok := decoded.Data.(*LogFolderResponse)
	require.True(t, ok, "got %T", decoded.Data)
	assert.Equal(t, "/home/alice/Sync", resp.Root)
	require.Len(t, resp.Versions, 1)
	assert.True(t, resp.Versions[0].Date.Equal(date))
	assert.Equal(t, "req-1", decoded.RequestID())
}

func TestMessage_UnknownTypeFails(t *testing.T) {
	var decoded Message
	err := json.Unmarshal([]byte(`{"id":"x","typ":999,"dat":{}}`), &decoded)
	assert.Error(t, err)
}

func TestMessage_RequestIDOnlyForResponses(t *testing.T) {
	req := NewLogFolderRequest("/r", LogOptions{MaxDatabaseVersionCount: 15})
	assert.Empty(t, req.RequestID())

	errMsg := NewError(req.Id, CodeUnknownRoot, "unknown root")
	assert.Equal(t, req.Id, errMsg.RequestID())
	assert.NotEqual(t, req.Id, errMsg.Id)
}

func TestChangeSet_HasChanges(t *testing.T) {
	assert.False(t, ChangeSet{}.HasChanges())
	assert.True(t, ChangeSet{Deleted: []string{"x"}}.HasChanges())
	assert.Equal(t, 3, ChangeSet{New: []string{"a"}, Changed: []string{"b", "c"}}.Len())
}

func TestMessageType_String(t *testing.T) {
	assert.Equal(t, "LOG_FOLDER_REQUEST", MsgLogFolderRequest.String())
	assert.Equal(t, "???(77)", MessageType(77).String())
}
