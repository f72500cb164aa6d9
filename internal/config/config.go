package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/palemoky/stone-rolling/internal/logger"
)

// Config 服务端配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Game     GameConfig     `yaml:"game"`
	Security SecurityConfig `yaml:"security"`
	Log      logger.Config  `yaml:"log"`
}

// ServerConfig WebSocket 服务器配置
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	MaxConnections int      `yaml:"max_connections"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	UserIDHeader   string   `yaml:"user_id_header"` // 上游鉴权网关写入的用户 ID 头
	// ShutdownWebhook 优雅关闭完成后通知的地址，为空时不通知
	ShutdownWebhook string `yaml:"shutdown_webhook"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LedgerConfig 钱包账本配置
type LedgerConfig struct {
	Driver         string `yaml:"driver"`          // memory, redis, sqlite
	SQLitePath     string `yaml:"sqlite_path"`     // driver=sqlite 时使用
	InitialBalance int64  `yaml:"initial_balance"` // memory 驱动下新用户的初始余额
	RetryAttempts  int    `yaml:"retry_attempts"`  // 钱包不可用时的重试次数
	RetryBackoffMs int    `yaml:"retry_backoff_ms"`
}

// RetryBackoff 返回重试间隔
func (c *LedgerConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMs) * time.Millisecond
}

// defaultCommissionBps 未配置 commission_bps 时的平台抽成（万分比）
const defaultCommissionBps = 500

// GameConfig 游戏配置
type GameConfig struct {
	MinStake          int64 `yaml:"min_stake"`
	MaxStake          int64 `yaml:"max_stake"`
	MinPlayers        int   `yaml:"min_players"`
	MaxPlayersLimit   int   `yaml:"max_players_limit"`
	DefaultMaxPlayers int   `yaml:"default_max_players"`
	AutoStartWhenFull bool  `yaml:"auto_start_when_full"`

	SpecialMultiplier int64  `yaml:"special_multiplier"` // 500/1000 的赔率倍数
	SuperMultiplier   int64  `yaml:"super_multiplier"`   // 3355/6624 在 special 基础上的再乘倍数
	CommissionBps     *int64 `yaml:"commission_bps"`     // 平台抽成，万分比；未配置时使用默认值，可配置为 0

	SettleRetryInterval int  `yaml:"settle_retry_interval"` // 结算重试间隔（秒）
	RoomTimeout         int  `yaml:"room_timeout"`          // 空房间等待超时（分钟）
	FinishedRoomTTL     int  `yaml:"finished_room_ttl"`     // 已结束房间保留时长（分钟）
	PersistRooms        bool `yaml:"persist_rooms"`         // 是否把房间快照写入 Redis
	RecordStats         bool `yaml:"record_stats"`          // 是否在 Redis 记录战绩和排行榜
	ShutdownTimeout     int  `yaml:"shutdown_timeout"`      // 优雅关闭等待对局结束（秒）
}

// Commission 平台抽成（万分比）
func (c *GameConfig) Commission() int64 {
	if c.CommissionBps == nil {
		return defaultCommissionBps
	}
	return *c.CommissionBps
}

// SettleRetryIntervalDuration 返回结算重试间隔
func (c *GameConfig) SettleRetryIntervalDuration() time.Duration {
	return time.Duration(c.SettleRetryInterval) * time.Second
}

// RoomTimeoutDuration 返回房间等待超时时长
func (c *GameConfig) RoomTimeoutDuration() time.Duration {
	return time.Duration(c.RoomTimeout) * time.Minute
}

// FinishedRoomTTLDuration 返回已结束房间的保留时长
func (c *GameConfig) FinishedRoomTTLDuration() time.Duration {
	return time.Duration(c.FinishedRoomTTL) * time.Minute
}

// ShutdownTimeoutDuration 返回优雅关闭超时
func (c *GameConfig) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	MessageLimit MessageLimitConfig `yaml:"message_limit"`
	ChatLimit    ChatLimitConfig    `yaml:"chat_limit"`
	IPWhitelist  []string           `yaml:"ip_whitelist"` // 非空时只允许名单内 IP
	IPBlacklist  []string           `yaml:"ip_blacklist"`
}

// RateLimitConfig 新连接速率（按 IP）
type RateLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
	MaxPerMinute int `yaml:"max_per_minute"`
	BanDuration  int `yaml:"ban_duration"` // 超限封禁（秒）
}

// BanDurationTime 返回封禁时长
func (c *RateLimitConfig) BanDurationTime() time.Duration {
	return time.Duration(c.BanDuration) * time.Second
}

// MessageLimitConfig 单连接消息速率
type MessageLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
}

// ChatLimitConfig 聊天速率
type ChatLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
	MaxPerMinute int `yaml:"max_per_minute"`
	Cooldown     int `yaml:"cooldown"` // 超限后冷却（秒）
}

// CooldownDuration 返回冷却时长
func (c *ChatLimitConfig) CooldownDuration() time.Duration {
	return time.Duration(c.Cooldown) * time.Second
}

// Load 加载配置文件
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default 返回默认配置
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults 设置默认值
func (c *Config) applyDefaults() {
	def := func(v *int, d int) {
		if *v == 0 {
			*v = d
		}
	}
	def64 := func(v *int64, d int64) {
		if *v == 0 {
			*v = d
		}
	}

	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	def(&c.Server.Port, 1790)
	def(&c.Server.MaxConnections, 10000)
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Server.UserIDHeader == "" {
		c.Server.UserIDHeader = "X-User-ID"
	}

	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}

	if c.Ledger.Driver == "" {
		c.Ledger.Driver = "memory"
	}
	if c.Ledger.SQLitePath == "" {
		c.Ledger.SQLitePath = "data/ledger.db"
	}
	def(&c.Ledger.RetryAttempts, 3)
	def(&c.Ledger.RetryBackoffMs, 200)

	def64(&c.Game.MinStake, 1)
	def64(&c.Game.MaxStake, 1_000_000)
	def(&c.Game.MinPlayers, 2)
	def(&c.Game.MaxPlayersLimit, 10)
	def(&c.Game.DefaultMaxPlayers, 2)
	def64(&c.Game.SpecialMultiplier, 2)
	def64(&c.Game.SuperMultiplier, 3)
	if c.Game.CommissionBps == nil {
		bps := int64(defaultCommissionBps)
		c.Game.CommissionBps = &bps
	}
	def(&c.Game.SettleRetryInterval, 5)
	def(&c.Game.RoomTimeout, 10)
	def(&c.Game.FinishedRoomTTL, 30)
	def(&c.Game.ShutdownTimeout, 300)

	def(&c.Security.RateLimit.MaxPerSecond, 10)
	def(&c.Security.RateLimit.MaxPerMinute, 60)
	def(&c.Security.RateLimit.BanDuration, 60)
	def(&c.Security.MessageLimit.MaxPerSecond, 20)
	def(&c.Security.ChatLimit.MaxPerSecond, 1)
	def(&c.Security.ChatLimit.MaxPerMinute, 20)
	def(&c.Security.ChatLimit.Cooldown, 10)

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate 检查配置之间的约束
func (c *Config) Validate() error {
	g := c.Game
	switch {
	case g.MinStake <= 0 || g.MaxStake < g.MinStake:
		return fmt.Errorf("invalid stake bounds [%d, %d]", g.MinStake, g.MaxStake)
	case g.MinPlayers < 2 || g.MaxPlayersLimit < g.MinPlayers:
		return fmt.Errorf("invalid player bounds [%d, %d]", g.MinPlayers, g.MaxPlayersLimit)
	case g.DefaultMaxPlayers < g.MinPlayers || g.DefaultMaxPlayers > g.MaxPlayersLimit:
		return fmt.Errorf("default_max_players %d outside [%d, %d]", g.DefaultMaxPlayers, g.MinPlayers, g.MaxPlayersLimit)
	case g.SpecialMultiplier < 1 || g.SuperMultiplier < 1:
		return fmt.Errorf("multipliers must be >= 1")
	case g.Commission() < 0 || g.Commission() >= 10_000:
		return fmt.Errorf("commission_bps %d outside [0, 10000)", g.Commission())
	}

	switch c.Ledger.Driver {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("unknown ledger driver %q", c.Ledger.Driver)
	}
	return nil
}
