//go:build !production

package testutil

import (
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/stone-rolling/internal/protocol"
	"github.com/palemoky/stone-rolling/internal/protocol/codec"
)

// MockClient 实现 types.ClientInterface 的 mock
type MockClient struct {
	mock.Mock
}

func (m *MockClient) GetID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) GetUserID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) Format() codec.Format {
	args := m.Called()
	return args.Get(0).(codec.Format)
}

func (m *MockClient) SendMessage(msg *protocol.Message) {
	m.Called(msg)
}

func (m *MockClient) SendFrame(format codec.Format, data []byte) {
	m.Called(format, data)
}

func (m *MockClient) Close() {
	m.Called()
}

// SimpleClient 记录收到消息的客户端，不使用 testify（用于不需要断言调用的测试）
type SimpleClient struct {
	ID     string
	UserID string
	Codec  codec.Format

	mu       sync.Mutex
	messages []*protocol.Message
	closed   bool
}

func (c *SimpleClient) GetID() string        { return c.ID }
func (c *SimpleClient) GetUserID() string    { return c.UserID }
func (c *SimpleClient) Format() codec.Format { return c.Codec }

func (c *SimpleClient) SendMessage(msg *protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

// SendFrame 解码后记录，编码错误会以 nil 消息记录
func (c *SimpleClient) SendFrame(format codec.Format, data []byte) {
	msg, _ := codec.Decode(format, data)
	c.SendMessage(msg)
}

func (c *SimpleClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Messages 已收到消息的副本
func (c *SimpleClient) Messages() []*protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*protocol.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Types 已收到消息的类型，按到达顺序
func (c *SimpleClient) Types() []protocol.MessageType {
	msgs := c.Messages()
	types := make([]protocol.MessageType, len(msgs))
	for i, m := range msgs {
		if m != nil {
			types[i] = m.Type
		}
	}
	return types
}

// Last 最后一条消息
func (c *SimpleClient) Last() *protocol.Message {
	msgs := c.Messages()
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

// Reset 清空已收到的消息
func (c *SimpleClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}

// IsClosed 是否已被关闭
func (c *SimpleClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
