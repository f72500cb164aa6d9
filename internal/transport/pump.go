package transport

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/palemoky/stone-rolling/internal/logger"
	"github.com/palemoky/stone-rolling/internal/protocol"
	"github.com/palemoky/stone-rolling/internal/protocol/codec"
)

// readPump 读取一条连接上的消息，连接断开后决定重连还是关闭
func (c *Client) readPump(conn *websocket.Conn, connDone chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
		}
		close(connDone)
		_ = conn.Close()
		if c.IsClosed() {
			return
		}
		if c.opts.MaxReconnects > 0 {
			go c.reconnect()
		} else {
			c.Close()
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && !c.IsClosed() {
				logger.L().Debug().Err(err).Str("user_id", c.opts.UserID).Msg("连接中断")
			}
			return
		}

		format := codec.FormatJSON
		if kind == websocket.BinaryMessage {
			format = codec.FormatProtobuf
		}
		pooled, err := codec.Decode(format, data)
		if err != nil {
			logger.L().Warn().Err(err).Msg("消息解析错误")
			continue
		}
		// 解码结果来自对象池，复制一份交给调用方
		msg := &protocol.Message{Type: pooled.Type, Payload: append([]byte(nil), pooled.Payload...)}
		codec.PutMessage(pooled)

		c.track(msg)

		select {
		case c.receive <- msg:
		default:
			logger.L().Warn().Str("type", string(msg.Type)).Msg("⚠️ 接收队列已满，丢弃消息")
		}
	}
}

// writePump 向一条连接写入消息，并定期发送 ping
func (c *Client) writePump(conn *websocket.Conn, connDone chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	kind := websocket.TextMessage
	if c.opts.Format == codec.FormatProtobuf {
		kind = websocket.BinaryMessage
	}

	for {
		select {
		case data := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(kind, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-connDone:
			return

		case <-c.done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// track 记录连接 ID、所在房间和延迟
func (c *Client) track(msg *protocol.Message) {
	switch msg.Type {
	case protocol.MsgConnected:
		if p, err := codec.ParsePayload[protocol.ConnectedPayload](msg); err == nil {
			c.mu.Lock()
			c.connID = p.ConnectionID
			c.mu.Unlock()
		}

	case protocol.MsgRoomCreated, protocol.MsgRoomSnapshot:
		if p, err := codec.ParsePayload[protocol.RoomPayload](msg); err == nil {
			c.roomID.Store(p.Room.ID)
		}

	case protocol.MsgPlayerJoined:
		if p, err := codec.ParsePayload[protocol.PlayerJoinedPayload](msg); err == nil && p.Player.UserID == c.opts.UserID {
			c.roomID.Store(p.RoomID)
		}

	case protocol.MsgPlayerLeft:
		if p, err := codec.ParsePayload[protocol.PlayerLeftPayload](msg); err == nil && p.UserID == c.opts.UserID {
			c.roomID.CompareAndSwap(p.RoomID, "")
		}

	case protocol.MsgPong:
		if p, err := codec.ParsePayload[protocol.PongPayload](msg); err == nil {
			c.latency.Store(time.Now().UnixMilli() - p.ClientTimestamp)
		}
	}
}
