package renderer

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"limi-configurator/internal/config"
)

// MQTTChannel 基于 MQTT 的出站通道
// QoS 0、不保留：与渲染器的 window-message 通道语义一致（只保证发出顺序，不保证送达）
type MQTTChannel struct {
	client mqtt.Client
	topic  string
	qos    byte
}

// NewMQTTChannel 连接 broker 并创建出站通道
func NewMQTTChannel(cfg *config.MQTTConfig, topic string) (*MQTTChannel, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID + "-out")

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &MQTTChannel{client: client, topic: topic, qos: 0}, nil
}

// Publish 发布一条线格式消息（不等待送达确认）
func (c *MQTTChannel) Publish(msg string) error {
	token := c.client.Publish(c.topic, c.qos, false, []byte(msg))
	// QoS 0 的 token 立即完成；这里只为拿到连接层错误
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", c.topic, token.Error())
	}
	return nil
}

// Ready broker 连接是否可用
func (c *MQTTChannel) Ready() bool {
	return c.client.IsConnected()
}

// Close 断开连接
func (c *MQTTChannel) Close() {
	c.client.Disconnect(250)
}
