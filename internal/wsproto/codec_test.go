package wsproto

import (
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/syncany/syncany-go/internal/daemonmsg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResponse() *daemonmsg.Message {
	return daemonmsg.NewLogFolderResponse("req-42", "/data/Sync", []daemonmsg.DatabaseVersion{
		{
			Date:      time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
			Client:    "desktop",
			ChangeSet: daemonmsg.ChangeSet{Changed: []string{"notes.md"}},
		},
		{Date: time.Date(2026, 2, 2, 4, 5, 6, 0, time.UTC)},
	})
}

func TestCodec_BothEncodingsPreserveResponses(t *testing.T) {
	for _, enc := range []Encoding{EncodingJSON, EncodingMsgPack} {
		t.Run(enc.String(), func(t *testing.T) {
			msg := sampleResponse()

			typ, data, err := Marshal(msg, enc)
			require.NoError(t, err)
			if enc == EncodingJSON {
				assert.Equal(t, websocket.MessageText, typ)
			} else {
				assert.Equal(t, websocket.MessageBinary, typ)
				assert.Equal(t, []byte{'S', 'Y', 1, byte(EncodingMsgPack)}, data[:4])
			}

			decoded, gotEnc, err := Unmarshal(typ, data)
			require.NoError(t, err)
			assert.Equal(t, enc, gotEnc)
			assert.Equal(t, msg.Id, decoded.Id)
			assert.Equal(t, "req-42", decoded.RequestID())

			resp := decoded.Data.(*daemonmsg.LogFolderResponse)
			require.Len(t, resp.Versions, 2)
			assert.True(t, resp.Versions[0].ChangeSet.HasChanges())
			assert.False(t, resp.Versions[1].ChangeSet.HasChanges())
			assert.True(t, resp.Versions[0].Date.Equal(msg.Data.(*daemonmsg.LogFolderResponse).Versions[0].Date))
		})
	}
}

func TestUnmarshal_RejectsBadEnvelopes(t *testing.T) {
	_, _, err := Unmarshal(websocket.MessageBinary, []byte{1, 2})
	assert.ErrorIs(t, err, ErrMissingEnvelope)

	_, _, err = Unmarshal(websocket.MessageBinary, []byte{'S', 'Y', 9, 1})
	assert.Error(t, err)

	_, _, err = Unmarshal(websocket.MessageBinary, []byte{'S', 'Y', 1, 7})
	assert.Error(t, err)
}

func TestPreferredEncoding(t *testing.T) {
	assert.Equal(t, EncodingMsgPack, PreferredEncoding("msgpack,json"))
	assert.Equal(t, EncodingJSON, PreferredEncoding(" JSON , msgpack"))
	assert.Equal(t, EncodingMsgPack, PreferredEncoding("cbor, msgpack"))
	assert.Equal(t, EncodingJSON, PreferredEncoding(""))
}
