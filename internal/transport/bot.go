package transport

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/palemoky/stone-rolling/internal/logger"
	"github.com/palemoky/stone-rolling/internal/protocol"
	"github.com/palemoky/stone-rolling/internal/protocol/codec"
)

// BotConfig 机器人参数
type BotConfig struct {
	Stake  int64 // 每局押注
	Rounds int   // 完成的局数，0 表示一直玩
}

// Bot 自动快速匹配、开局并掷石头的机器人，用于联调和压测
type Bot struct {
	client *Client
	cfg    BotConfig
	userID string
	log    zerolog.Logger

	room     *protocol.RoomInfo
	rolledIn string // 已经掷过的房间
	rounds   int
	won      int64
}

// NewBot 创建机器人
func NewBot(c *Client, cfg BotConfig) *Bot {
	return &Bot{
		client: c,
		cfg:    cfg,
		userID: c.opts.UserID,
		log:    logger.L().With().Str("bot", c.opts.UserID).Logger(),
	}
}

// Rounds 已完成的局数
func (b *Bot) Rounds() int { return b.rounds }

// Winnings 累计赢得的金额
func (b *Bot) Winnings() int64 { return b.won }

// Run 运行到完成指定局数、ctx 取消或出现无法继续的错误
func (b *Bot) Run(ctx context.Context) error {
	if err := b.client.QuickMatch(b.cfg.Stake); err != nil {
		return err
	}

	for {
		msg, err := b.client.Receive(ctx)
		if err != nil {
			return err
		}
		done, err := b.handle(msg)
		if err != nil || done {
			return err
		}
	}
}

func (b *Bot) handle(msg *protocol.Message) (bool, error) {
	switch msg.Type {
	case protocol.MsgRoomSnapshot, protocol.MsgGameStarted:
		p, err := codec.ParsePayload[protocol.RoomPayload](msg)
		if err != nil {
			return false, err
		}
		b.room = &p.Room
		return false, b.act()

	case protocol.MsgPlayerJoined:
		p, err := codec.ParsePayload[protocol.PlayerJoinedPayload](msg)
		if err != nil || b.room == nil || b.room.ID != p.RoomID {
			return false, err
		}
		if !slices.ContainsFunc(b.room.Players, func(pi protocol.PlayerInfo) bool { return pi.UserID == p.Player.UserID }) {
			b.room.Players = append(b.room.Players, p.Player)
		}
		return false, b.act()

	case protocol.MsgPlayerLeft:
		p, err := codec.ParsePayload[protocol.PlayerLeftPayload](msg)
		if err != nil || b.room == nil || b.room.ID != p.RoomID {
			return false, err
		}
		b.room.Players = slices.DeleteFunc(b.room.Players, func(pi protocol.PlayerInfo) bool {
			return pi.UserID == p.UserID
		})
		return false, nil

	case protocol.MsgRoomCancelled:
		b.log.Info().Msg("🚫 房间已取消，重新匹配")
		b.room = nil
		return false, b.client.QuickMatch(b.cfg.Stake)

	case protocol.MsgGameEnded:
		p, err := codec.ParsePayload[protocol.GameEndedPayload](msg)
		if err != nil {
			return false, err
		}
		return b.finish(p)

	case protocol.MsgError:
		p, err := codec.ParsePayload[protocol.ErrorPayload](msg)
		if err != nil {
			return false, err
		}
		switch p.Code {
		case protocol.ErrCodeInsufficientFunds, protocol.ErrCodeServerMaintenance:
			return true, fmt.Errorf("bot %s: %s (%d)", b.userID, p.Message, p.Code)
		case protocol.ErrCodeNotEnoughPlayers, protocol.ErrCodeRoomStarted, protocol.ErrCodeRoomNotWaiting:
			// 开局竞争的正常结果
		default:
			b.log.Warn().Int("code", p.Code).Str("message", p.Message).Msg("⚠️ 收到错误")
		}
	}
	return false, nil
}

// act 房主人数够了就开局；开局后掷石头
func (b *Bot) act() error {
	r := b.room
	switch r.Status {
	case "waiting":
		if r.OwnerUserID == b.userID && len(r.Players) >= r.MinPlayers {
			return b.client.StartGame(r.ID)
		}
	case "in_progress":
		if b.rolledIn == r.ID {
			return nil
		}
		for _, p := range r.Players {
			if p.UserID == b.userID && !p.HasRolled {
				b.rolledIn = r.ID
				return b.client.RollStone(r.ID)
			}
		}
	}
	return nil
}

func (b *Bot) finish(p *protocol.GameEndedPayload) (bool, error) {
	if b.room == nil || p.Room.ID != b.room.ID {
		return false, nil
	}
	b.rounds++
	for _, w := range p.Winners {
		if w.UserID == b.userID {
			b.won += w.Share
		}
	}
	b.log.Info().Int("round", b.rounds).Int64("winnings", b.won).Msg("🏁 一局结束")
	b.room = nil

	if b.cfg.Rounds > 0 && b.rounds >= b.cfg.Rounds {
		return true, nil
	}
	return false, b.client.QuickMatch(b.cfg.Stake)
}
