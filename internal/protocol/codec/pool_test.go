package codec

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestMessagePool_GetPut(t *testing.T) {
	t.Parallel()

	msg := GetMessage()
	assert.NotNil(t, msg)

	msg.Type = "test"
	msg.Payload = []byte("data")

	PutMessage(msg)

	// Get again - should be reset
	msg2 := GetMessage()
	assert.NotNil(t, msg2)
	assert.Empty(t, msg2.Type)
	assert.Nil(t, msg2.Payload)
}

func TestMessagePool_PutNil(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		PutMessage(nil)
		PutEnvelope(nil)
		PutBuffer(nil)
	})
}

func TestEnvelopePool_GetPut(t *testing.T) {
	t.Parallel()

	env := GetEnvelope()
	env.Fields = map[string]*structpb.Value{"type": structpb.NewStringValue("ping")}
	PutEnvelope(env)

	env2 := GetEnvelope()
	assert.Empty(t, env2.GetFields())
}

func TestBufferPool_Concurrent(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := GetBuffer()
			buf.WriteString("payload")
			assert.Equal(t, "payload", buf.String())
			PutBuffer(buf)
		}()
	}
	wg.Wait()
}
