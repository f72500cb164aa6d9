package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key 前缀
	roomKeyPrefix = "room:"

	// 默认房间数据过期时间
	defaultRoomExpiration = 2 * time.Hour
)

// RedisPersister 将房间快照以 JSON 保存到 Redis
type RedisPersister struct {
	client     *redis.Client
	expiration time.Duration
}

// NewRedisPersister 创建 Redis 持久化，expiration 为 0 时使用默认值
func NewRedisPersister(client *redis.Client, expiration time.Duration) *RedisPersister {
	if expiration <= 0 {
		expiration = defaultRoomExpiration
	}
	return &RedisPersister{client: client, expiration: expiration}
}

// SaveRoom 保存房间到 Redis
func (p *RedisPersister) SaveRoom(ctx context.Context, room *Room) error {
	if room == nil {
		return nil
	}

	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("序列化房间数据失败: %w", err)
	}
	return p.client.Set(ctx, roomKeyPrefix+room.ID, data, p.expiration).Err()
}

// LoadRoom 从 Redis 加载单个房间，不存在时返回 nil
func (p *RedisPersister) LoadRoom(ctx context.Context, roomID string) (*Room, error) {
	data, err := p.client.Get(ctx, roomKeyPrefix+roomID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var room Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("反序列化房间数据失败: %w", err)
	}
	return &room, nil
}

// DeleteRoom 从 Redis 删除房间
func (p *RedisPersister) DeleteRoom(ctx context.Context, roomID string) error {
	return p.client.Del(ctx, roomKeyPrefix+roomID).Err()
}

// RoomIDs 获取所有已保存的房间号
func (p *RedisPersister) RoomIDs(ctx context.Context) ([]string, error) {
	var ids []string
	iter := p.client.Scan(ctx, 0, roomKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[len(roomKeyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// LoadRooms 加载所有房间，单个房间损坏时跳过
func (p *RedisPersister) LoadRooms(ctx context.Context) ([]*Room, error) {
	ids, err := p.RoomIDs(ctx)
	if err != nil {
		return nil, err
	}

	rooms := make([]*Room, 0, len(ids))
	var errs []error
	for _, id := range ids {
		room, err := p.LoadRoom(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("room %s: %w", id, err))
			continue
		}
		if room != nil {
			rooms = append(rooms, room)
		}
	}
	return rooms, errors.Join(errs...)
}
