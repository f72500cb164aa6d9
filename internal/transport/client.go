// Package transport 石头对战的 WebSocket 客户端：收发消息、心跳、断线重连。
package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/palemoky/stone-rolling/internal/protocol"
	"github.com/palemoky/stone-rolling/internal/protocol/codec"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	bufferSize = 256
)

var (
	// ErrClosed 客户端已关闭
	ErrClosed = errors.New("transport: client closed")
	// ErrBufferFull 发送缓冲区已满
	ErrBufferFull = errors.New("transport: send buffer full")
)

// Options 客户端选项
type Options struct {
	URL    string       // ws://host:port/ws
	UserID string       // 通过 UserIDHeader 发送，开发环境代替网关
	Format codec.Format // 发送帧的编码，第一帧决定服务端回复的编码

	UserIDHeader      string        // 默认 X-User-ID
	MaxReconnects     int           // 0 表示不重连
	ReconnectInterval time.Duration // 首次重连等待，之后指数增长，最长 30 秒
}

// Client WebSocket 客户端
//
// 发送缓冲区和接收队列在重连之间保留，重连期间发送的消息会在新连接上发出。
type Client struct {
	opts Options

	send    chan []byte
	receive chan *protocol.Message
	done    chan struct{}

	mu     sync.RWMutex
	conn   *websocket.Conn
	connID string
	closed bool

	roomID       atomic.Value // string，最近一次进入的房间
	latency      atomic.Int64
	reconnecting atomic.Bool

	// OnReconnect 重连成功后调用（在读协程中执行）
	OnReconnect func()
}

// Dial 连接服务器
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.UserIDHeader == "" {
		opts.UserIDHeader = "X-User-ID"
	}
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = 2 * time.Second
	}
	c := &Client{
		opts:    opts,
		send:    make(chan []byte, bufferSize),
		receive: make(chan *protocol.Message, bufferSize),
		done:    make(chan struct{}),
	}
	c.roomID.Store("")

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.attach(conn)
	return c, nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := http.Header{}
	if c.opts.UserID != "" {
		header.Set(c.opts.UserIDHeader, c.opts.UserID)
	}
	conn, resp, err := dialer.DialContext(ctx, c.opts.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// attach 启动新连接的读写协程，客户端已关闭时返回 false
func (c *Client) attach(conn *websocket.Conn) bool {
	connDone := make(chan struct{})
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return false
	}
	c.conn = conn
	c.mu.Unlock()

	go c.readPump(conn, connDone)
	go c.writePump(conn, connDone)
	return true
}

// Send 发送消息，不阻塞
func (c *Client) Send(msg *protocol.Message) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	data, err := codec.Encode(c.opts.Format, msg)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// Receive 阻塞接收下一条消息
func (c *Client) Receive(ctx context.Context) (*protocol.Message, error) {
	select {
	case msg := <-c.receive:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
}

// Close 关闭客户端，不再重连
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// IsClosed 是否已关闭
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// ConnectionID 服务端分配的连接 ID
func (c *Client) ConnectionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connID
}

// RoomID 最近一次进入的房间
func (c *Client) RoomID() string {
	return c.roomID.Load().(string)
}

// Latency 最近一次 ping 的往返延迟
func (c *Client) Latency() time.Duration {
	return time.Duration(c.latency.Load()) * time.Millisecond
}

// IsReconnecting 是否正在重连
func (c *Client) IsReconnecting() bool {
	return c.reconnecting.Load()
}

// StartHeartbeat 定期发送 ping 以测量延迟，客户端关闭后停止
func (c *Client) StartHeartbeat(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if !c.IsReconnecting() {
					_ = c.Ping()
				}
			case <-c.done:
				return
			}
		}
	}()
}
