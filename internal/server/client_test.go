package server

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/stone-rolling/internal/protocol"
	"github.com/palemoky/stone-rolling/internal/protocol/codec"
)

func TestClient_FrameKindFollowsEncoding(t *testing.T) {
	t.Parallel()
	c := NewClient(nil, nil, "alice", "127.0.0.1")
	msg := codec.MustNewMessage(protocol.MsgPong, protocol.PongPayload{ClientTimestamp: 1})

	pb, err := codec.Encode(codec.FormatProtobuf, msg)
	require.NoError(t, err)
	// the connection still negotiates JSON, the frame was encoded as protobuf
	c.SendFrame(codec.FormatProtobuf, pb)

	js, err := codec.Encode(codec.FormatJSON, msg)
	require.NoError(t, err)
	c.SendFrame(codec.FormatJSON, js)

	first := <-c.send
	assert.Equal(t, websocket.BinaryMessage, first.kind)
	assert.Equal(t, pb, first.data)
	second := <-c.send
	assert.Equal(t, websocket.TextMessage, second.kind)
}

func TestClient_SendMessageUsesNegotiatedFormat(t *testing.T) {
	t.Parallel()
	c := NewClient(nil, nil, "alice", "127.0.0.1")

	c.SendMessage(codec.MustNewMessage(protocol.MsgPong, protocol.PongPayload{}))

	f := <-c.send
	assert.Equal(t, websocket.TextMessage, f.kind)
	got, err := codec.Decode(codec.FormatJSON, f.data)
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgPong, got.Type)
}
