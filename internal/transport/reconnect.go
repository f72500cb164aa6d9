package transport

import (
	"context"
	"time"

	"github.com/palemoky/stone-rolling/internal/logger"
)

const maxReconnectBackoff = 30 * time.Second

// reconnect 指数退避重连；成功后请求所在房间的快照，服务端据此重新绑定连接
func (c *Client) reconnect() {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
		}
	}()

	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}
	defer c.reconnecting.Store(false)

	log := logger.L().With().Str("user_id", c.opts.UserID).Logger()
	backoff := c.opts.ReconnectInterval

	for attempt := 1; attempt <= c.opts.MaxReconnects; attempt++ {
		select {
		case <-time.After(backoff):
		case <-c.done:
			return
		}
		backoff = min(backoff*2, maxReconnectBackoff)

		log.Info().Int("attempt", attempt).Int("max", c.opts.MaxReconnects).Msg("🔄 尝试重连")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		conn, err := c.dial(ctx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("重连失败")
			continue
		}
		if !c.attach(conn) {
			return
		}

		if roomID := c.RoomID(); roomID != "" {
			_ = c.GetSnapshot(roomID)
		}
		log.Info().Str("room_id", c.RoomID()).Msg("✅ 重连成功")
		if c.OnReconnect != nil {
			c.OnReconnect()
		}
		return
	}

	log.Error().Msg("❌ 重连失败，已达最大尝试次数")
	c.Close()
}
