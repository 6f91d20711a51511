package eventsvc

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/proctor/core/relay"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

type published struct {
	topic   string
	payload []byte
}

type publisherMock struct {
	mu   sync.Mutex
	msgs []published
}

func (p *publisherMock) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic: topic, payload: payload.([]byte)})
	return doneToken{}
}

func TestMQTTSink_Publish(t *testing.T) {
	pub := &publisherMock{}
	sink := newMQTTSink(pub, "proctor", nopLogger{})

	tests := []struct {
		name      string
		msg       relay.Message
		wantTopic string
	}{
		{
			name:      "alert",
			msg:       relay.Message{Type: relay.KindAlert, Identity: "cand-1", Alerts: []string{"Multiple faces detected"}},
			wantTopic: "proctor/cand-1/alert",
		},
		{
			name:      "termination",
			msg:       relay.Message{Type: relay.KindTerminated, Identity: "cand-1", Reason: "tab-hidden", Warnings: 3},
			wantTopic: "proctor/cand-1/terminated",
		},
		{name: "no identity", msg: relay.Message{Type: relay.KindConnect}, wantTopic: "proctor/_/connect-notice"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink.Publish(tt.msg)

			pub.mu.Lock()
			defer pub.mu.Unlock()
			require.Len(t, pub.msgs, i+1)
			got := pub.msgs[i]
			assert.Equal(t, tt.wantTopic, got.topic)

			var msg relay.Message
			require.NoError(t, json.Unmarshal(got.payload, &msg))
			assert.Equal(t, tt.msg.Type, msg.Type)
			assert.Equal(t, tt.msg.Identity, msg.Identity)
		})
	}
}
