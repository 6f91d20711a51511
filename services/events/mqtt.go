package eventsvc

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/trezcool/proctor/core"
	"github.com/trezcool/proctor/core/relay"
)

const publishTimeout = 5 * time.Second

// publisher is the part of mqtt.Client used by MQTTSink.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTSink publishes integrity events on <prefix>/<identity>/<type>.
type MQTTSink struct {
	client publisher
	prefix string
	logger core.Logger
}

var _ relay.EventSink = (*MQTTSink)(nil)

// NewMQTTSink connects to the configured broker.
func NewMQTTSink(conf *core.Config, logger core.Logger) (*MQTTSink, mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(conf.MQTT.Broker)
	opts.SetClientID(conf.MQTT.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, nil, fmt.Errorf("mqtt connect failed: %w", token.Error())
	}
	return newMQTTSink(client, conf.MQTT.TopicPrefix, logger), client, nil
}

func newMQTTSink(client publisher, prefix string, logger core.Logger) *MQTTSink {
	return &MQTTSink{client: client, prefix: prefix, logger: logger}
}

func (s *MQTTSink) topic(msg relay.Message) string {
	identity := msg.Identity
	if identity == "" {
		identity = "_"
	}
	return fmt.Sprintf("%s/%s/%s", s.prefix, identity, msg.Type)
}

// Publish sends msg without waiting for the broker acknowledgment.
func (s *MQTTSink) Publish(msg relay.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("failed to marshal event", err)
		return
	}

	topic := s.topic(msg)
	token := s.client.Publish(topic, 1, false, payload)
	go func() {
		if !token.WaitTimeout(publishTimeout) {
			s.logger.Warn("mqtt publish timed out", map[string]interface{}{"topic": topic})
			return
		}
		if err := token.Error(); err != nil {
			s.logger.Warn("mqtt publish failed", err, map[string]interface{}{"topic": topic})
		}
	}()
}

// NopSink discards events. Used when no broker is configured.
type NopSink struct{}

var _ relay.EventSink = NopSink{}

func (NopSink) Publish(relay.Message) {}
