package server

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/palemoky/stone-rolling/internal/logger"
	"github.com/palemoky/stone-rolling/internal/protocol"
	"github.com/palemoky/stone-rolling/internal/protocol/codec"
)

const (
	// 写入超时
	writeWait = 10 * time.Second

	// 读取超时（pong 等待时间）
	pongWait = 60 * time.Second

	// ping 发送间隔（必须小于 pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 消息最大大小
	maxMessageSize = 4096

	// 发送缓冲区大小，写满视为慢连接
	sendBufferSize = 256

	// 连续超速次数达到该值后断开连接
	maxRateWarnings = 5
)

// frame 待写出的一帧
type frame struct {
	kind int // websocket.TextMessage / websocket.BinaryMessage
	data []byte
}

// Client 一条 WebSocket 连接
//
// 编码格式由客户端发送的第一帧决定：文本帧使用 JSON，二进制帧使用 protobuf。
// 协商之前发出的消息（如 connected）使用 JSON。
type Client struct {
	ID     string // 连接 ID
	UserID string // 上游网关认证过的用户 ID
	IP     string

	server *Server
	conn   *websocket.Conn
	send   chan frame

	format     atomic.Int32
	negotiated atomic.Bool

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

// NewClient 创建新客户端
func NewClient(s *Server, conn *websocket.Conn, userID, ip string) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		IP:     ip,
		server: s,
		conn:   conn,
		send:   make(chan frame, sendBufferSize),
		done:   make(chan struct{}),
	}
}

func (c *Client) GetID() string     { return c.ID }
func (c *Client) GetUserID() string { return c.UserID }

// Format 连接当前使用的编码格式
func (c *Client) Format() codec.Format {
	return codec.Format(c.format.Load())
}

// negotiate 根据第一帧的类型确定编码格式，之后不再改变
func (c *Client) negotiate(messageType int) {
	if !c.negotiated.CompareAndSwap(false, true) {
		return
	}
	if messageType == websocket.BinaryMessage {
		c.format.Store(int32(codec.FormatProtobuf))
	}
}

// ReadPump 从 WebSocket 读取消息，连接断开后负责清理
func (c *Client) ReadPump(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		c.server.handleDisconnect(c)
		c.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	log := logger.L().With().Str("conn_id", c.ID).Str("user_id", c.UserID).Logger()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("读取错误")
			}
			return
		}
		c.negotiate(messageType)

		allowed, warning := c.server.messageLimiter.AllowMessage(c.ID)
		if !allowed {
			log.Warn().Str("ip", c.IP).Msg("⚠️ 消息过于频繁")
			c.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeRateLimit, "消息发送过于频繁"))
			if c.server.messageLimiter.GetWarningCount(c.ID) > maxRateWarnings {
				log.Warn().Msg("🚫 多次超速，断开连接")
				return
			}
			continue
		}
		if warning {
			c.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeRateLimit, "请求过于频繁，请放慢速度"))
		}

		format := codec.FormatJSON
		if messageType == websocket.BinaryMessage {
			format = codec.FormatProtobuf
		}
		msg, err := codec.Decode(format, data)
		if err != nil {
			log.Debug().Err(err).Msg("消息解析错误")
			c.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
			continue
		}

		c.server.handler.Handle(ctx, c, msg)
		codec.PutMessage(msg)
	}
}

// WritePump 向 WebSocket 写入消息并定期发送 ping
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case f := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(f.kind, f.data); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage 按连接的编码格式编码后发送
func (c *Client) SendMessage(msg *protocol.Message) {
	format := c.Format()
	data, err := codec.Encode(format, msg)
	if err != nil {
		logger.L().Error().Err(err).Str("conn_id", c.ID).Str("type", string(msg.Type)).Msg("❌ 消息编码错误")
		return
	}
	c.SendFrame(format, data)
}

// SendFrame 发送按 format 编码好的帧，帧类型由 format 决定；不阻塞，缓冲区已满时关闭连接
func (c *Client) SendFrame(format codec.Format, data []byte) {
	kind := websocket.TextMessage
	if format == codec.FormatProtobuf {
		kind = websocket.BinaryMessage
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}

	select {
	case c.send <- frame{kind: kind, data: data}:
	default:
		logger.L().Warn().Str("conn_id", c.ID).Str("user_id", c.UserID).Msg("⚠️ 发送缓冲区已满，关闭连接")
		go c.Close()
	}
}

// Close 关闭连接，可重复调用
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
	})
}

// IsClosed 连接是否已关闭
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
