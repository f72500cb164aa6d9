package coordinator

import "fmt"

// 钱包幂等键，同一次逻辑操作的重试必须生成相同的键

func joinKey(roomID, userID string, seq int) string {
	return fmt.Sprintf("%s:%s:join:%d", roomID, userID, seq)
}

func compensateKey(roomID, userID string, seq int) string {
	return joinKey(roomID, userID, seq) + ":compensate"
}

func leaveKey(roomID, userID string, seq int) string {
	return fmt.Sprintf("%s:%s:leave:%d", roomID, userID, seq)
}

func refundKey(roomID, userID string, seq int) string {
	return fmt.Sprintf("%s:%s:refund:%d", roomID, userID, seq)
}

func resolutionKey(roomID, userID string) string {
	return fmt.Sprintf("%s:%s:resolution", roomID, userID)
}
