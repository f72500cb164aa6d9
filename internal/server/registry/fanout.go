package registry

import (
	"github.com/palemoky/stone-rolling/internal/logger"
	"github.com/palemoky/stone-rolling/internal/protocol"
	"github.com/palemoky/stone-rolling/internal/protocol/codec"
	"github.com/palemoky/stone-rolling/internal/types"
)

// Fanout 按房间广播事件，尽力投递：单个连接发送失败不影响其他连接
type Fanout struct {
	registry *Registry
}

// NewFanout 创建广播器
func NewFanout(registry *Registry) *Fanout {
	return &Fanout{registry: registry}
}

// Broadcast 发送给房间内的所有连接，每种编码格式只编码一次
func (f *Fanout) Broadcast(roomID string, msg *protocol.Message) {
	conns := f.registry.ConnectionsFor(roomID)
	if len(conns) == 0 {
		return
	}

	frames := make(map[codec.Format][]byte, 2)
	for _, c := range conns {
		format := c.Format()
		data, ok := frames[format]
		if !ok {
			var err error
			data, err = codec.Encode(format, msg)
			if err != nil {
				logger.Room(roomID).Error().Err(err).
					Str("type", string(msg.Type)).
					Str("format", format.String()).
					Msg("❌ 事件编码失败")
				continue
			}
			frames[format] = data
		}
		c.SendFrame(format, data)
	}
}

// SendTo 只发送给一个连接
func (f *Fanout) SendTo(conn types.ClientInterface, msg *protocol.Message) {
	conn.SendMessage(msg)
}
