package codec

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/palemoky/stone-rolling/internal/protocol"
)

const (
	envelopeTypeField    = "type"
	envelopePayloadField = "payload"
)

// EncodeBinary 将消息编码为 Protobuf 字节。
// 信封是 google.protobuf.Struct: {type: string, payload: Struct}，
// 数值在 Struct 中以 double 表示，金额需保持在 2^53 以内。
func EncodeBinary(m *protocol.Message) ([]byte, error) {
	env := GetEnvelope()
	defer PutEnvelope(env)

	env.Fields = map[string]*structpb.Value{
		envelopeTypeField: structpb.NewStringValue(string(m.Type)),
	}

	if len(m.Payload) > 0 && string(m.Payload) != "null" {
		payload := &structpb.Struct{}
		if err := protojson.Unmarshal(m.Payload, payload); err != nil {
			return nil, fmt.Errorf("payload 不是 JSON 对象: %w", err)
		}
		env.Fields[envelopePayloadField] = structpb.NewStructValue(payload)
	}

	return proto.Marshal(env)
}

// DecodeBinary 从 Protobuf 字节解码消息
// 注意: 使用完毕后应调用 PutMessage 归还对象到池
func DecodeBinary(data []byte) (*protocol.Message, error) {
	env := GetEnvelope()
	defer PutEnvelope(env)

	if err := proto.Unmarshal(data, env); err != nil {
		return nil, err
	}

	msgType := env.GetFields()[envelopeTypeField].GetStringValue()
	if msgType == "" {
		return nil, errors.New("missing message type")
	}

	msg := GetMessage()
	msg.Type = protocol.MessageType(msgType)

	if payload := env.GetFields()[envelopePayloadField].GetStructValue(); payload != nil {
		raw, err := protojson.Marshal(payload)
		if err != nil {
			PutMessage(msg)
			return nil, err
		}
		msg.Payload = raw
	}

	return msg, nil
}
