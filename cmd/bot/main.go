// 联调和压测用的机器人：每个机器人一条连接，快速匹配后自动开局、掷石头。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/palemoky/stone-rolling/internal/logger"
	"github.com/palemoky/stone-rolling/internal/protocol/codec"
	"github.com/palemoky/stone-rolling/internal/transport"
)

func main() {
	url := flag.String("url", "ws://127.0.0.1:1790/ws", "服务器地址")
	count := flag.Int("bots", 2, "机器人数量")
	stake := flag.Int64("stake", 100, "每局押注")
	rounds := flag.Int("rounds", 10, "每个机器人完成的局数，0 表示一直玩")
	prefix := flag.String("prefix", "bot", "机器人用户 ID 前缀")
	binary := flag.Bool("binary", false, "使用 protobuf 二进制帧")
	reconnects := flag.Int("reconnects", 5, "最大重连次数")
	level := flag.String("log-level", "info", "日志级别")
	flag.Parse()

	if err := logger.Init(logger.Config{Level: *level, Format: "console"}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	format := codec.FormatJSON
	if *binary {
		format = codec.FormatProtobuf
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for i := range *count {
		userID := fmt.Sprintf("%s-%d", *prefix, i+1)
		g.Go(func() error {
			c, err := transport.Dial(gctx, transport.Options{
				URL:           *url,
				UserID:        userID,
				Format:        format,
				MaxReconnects: *reconnects,
			})
			if err != nil {
				return fmt.Errorf("%s 连接失败: %w", userID, err)
			}
			defer c.Close()

			b := transport.NewBot(c, transport.BotConfig{Stake: *stake, Rounds: *rounds})
			err = b.Run(gctx)
			logger.L().Info().
				Str("bot", userID).
				Int("rounds", b.Rounds()).
				Int64("winnings", b.Winnings()).
				Msg("🤖 机器人结束")
			return err
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.L().Error().Err(err).Msg("机器人异常退出")
		logger.Close()
		os.Exit(1)
	}
}
