package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/palemoky/stone-rolling/internal/apperrors"
	"github.com/palemoky/stone-rolling/internal/protocol"
)

// Format 连接使用的帧编码
type Format int

const (
	FormatJSON     Format = iota // 文本帧，JSON
	FormatProtobuf               // 二进制帧，structpb 信封
)

func (f Format) String() string {
	if f == FormatProtobuf {
		return "protobuf"
	}
	return "json"
}

// NewMessage 创建一个新消息，payload 以 JSON 形式保存
func NewMessage(msgType protocol.MessageType, payload any) (*protocol.Message, error) {
	msg := &protocol.Message{Type: msgType}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", msgType, err)
		}
		msg.Payload = data
	}
	return msg, nil
}

// MustNewMessage 创建消息，失败时 panic
func MustNewMessage(msgType protocol.MessageType, payload any) *protocol.Message {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// Encode 按指定格式编码消息
func Encode(format Format, m *protocol.Message) ([]byte, error) {
	if format == FormatProtobuf {
		return EncodeBinary(m)
	}
	return EncodeJSON(m)
}

// Decode 按指定格式解码消息
// 注意: 使用完毕后应调用 PutMessage 归还对象到池
func Decode(format Format, data []byte) (*protocol.Message, error) {
	if format == FormatProtobuf {
		return DecodeBinary(data)
	}
	return DecodeJSON(data)
}

// EncodeJSON 将消息编码为 JSON 文本
func EncodeJSON(m *protocol.Message) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if err := json.NewEncoder(buf).Encode(m); err != nil {
		return nil, err
	}
	// Encoder 会追加换行，去掉后复制出来，buf 会被复用
	return bytes.Clone(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// DecodeJSON 从 JSON 文本解码消息
func DecodeJSON(data []byte) (*protocol.Message, error) {
	msg := GetMessage()
	if err := json.Unmarshal(data, msg); err != nil {
		PutMessage(msg)
		return nil, err
	}
	if msg.Type == "" {
		PutMessage(msg)
		return nil, errors.New("missing message type")
	}
	return msg, nil
}

// ParsePayload 解析消息的 Payload 到指定类型
func ParsePayload[T any](msg *protocol.Message) (*T, error) {
	var payload T
	if len(msg.Payload) == 0 {
		return &payload, nil
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// NewErrorMessage 创建错误消息
func NewErrorMessage(code int) *protocol.Message {
	return NewErrorMessageWithText(code, protocol.ErrorMessages[code])
}

// NewErrorMessageWithText 创建带自定义文本的错误消息
func NewErrorMessageWithText(code int, text string) *protocol.Message {
	msg, _ := NewMessage(protocol.MsgError, protocol.ErrorPayload{
		Code:    code,
		Message: text,
	})
	return msg
}

// ErrorMessageFrom 将业务错误转换为发给请求方的错误消息，内部错误不暴露细节
func ErrorMessageFrom(err error) *protocol.Message {
	pub := apperrors.Public(err)
	return NewErrorMessageWithText(pub.Code, pub.Message)
}
