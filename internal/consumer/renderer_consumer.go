package consumer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"limi-configurator/internal/config"
	"limi-configurator/internal/renderer"
	"limi-configurator/internal/session"
)

// 渲染器入站事件消费者
// 订阅 {event_topic}/{session_id}，把渲染器发来的事件分发到对应会话。
// 入站内容不可信：只认识协议表里的事件字面量，其余丢弃并告警

// RendererConsumer 渲染器事件消费者
type RendererConsumer struct {
	cfg      *config.Config
	client   mqtt.Client
	sessions *session.Manager
	logger   *zap.Logger
}

// NewRendererConsumer 创建消费者（连接在 Start 时建立）
func NewRendererConsumer(cfg *config.Config, sessions *session.Manager, logger *zap.Logger) *RendererConsumer {
	return &RendererConsumer{
		cfg:      cfg,
		sessions: sessions,
		logger:   logger,
	}
}

func (c *RendererConsumer) topicFilter() string {
	return c.cfg.Renderer.EventTopic + "/+"
}

// Start 连接 broker 并订阅事件主题
func (c *RendererConsumer) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.cfg.MQTT.Broker)
	opts.SetClientID(c.cfg.MQTT.ClientID + "-in")

	if c.cfg.MQTT.Username != "" {
		opts.SetUsername(c.cfg.MQTT.Username)
	}
	if c.cfg.MQTT.Password != "" {
		opts.SetPassword(c.cfg.MQTT.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		// 重连后重订阅
		if token := client.Subscribe(c.topicFilter(), 1, c.handleMessage); token.Wait() && token.Error() != nil {
			c.logger.Error("Failed to subscribe to renderer events",
				zap.String("topic", c.topicFilter()),
				zap.Error(token.Error()),
			)
		}
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	c.client = client

	c.logger.Info("Renderer event consumer started",
		zap.String("topic", c.topicFilter()),
	)
	return nil
}

// Stop 取消订阅并断开
func (c *RendererConsumer) Stop() {
	if c.client == nil {
		return
	}
	if token := c.client.Unsubscribe(c.topicFilter()); token.Wait() && token.Error() != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(token.Error()))
	}
	c.client.Disconnect(250)
	c.logger.Info("Renderer event consumer stopped")
}

// handleMessage 处理一条入站事件
func (c *RendererConsumer) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	topic := msg.Topic()
	payload := string(msg.Payload())

	// 主题格式: {event_topic}/{session_id}
	idx := strings.LastIndex(topic, "/")
	if idx < 0 || idx == len(topic)-1 {
		c.logger.Warn("Invalid event topic", zap.String("topic", topic))
		return
	}
	sessionID := topic[idx+1:]

	if err := c.Dispatch(context.Background(), sessionID, payload); err != nil {
		c.logger.Warn("Renderer event dropped",
			zap.String("session_id", sessionID),
			zap.String("payload", payload),
			zap.Error(err),
		)
	}
}

// Dispatch 解析并分发一条渲染器事件到会话
func (c *RendererConsumer) Dispatch(ctx context.Context, sessionID, payload string) error {
	evt, err := renderer.ParseInbound(payload)
	if err != nil {
		return err
	}

	s, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return fmt.Errorf("unknown session: %w", err)
		}
		return err
	}

	switch evt.Kind {
	case renderer.InboundReady:
		res := s.HandleRendererReady()
		c.logger.Info("Renderer ready, state replayed",
			zap.String("session_id", sessionID),
			zap.Int("messages", len(res.Messages)),
		)
	case renderer.InboundUnitPicked:
		if err := s.HandleUnitPicked(evt.Index); err != nil {
			return err
		}
	case renderer.InboundOffConfig:
		s.HandleOffConfig()
	case renderer.InboundOpenBaseColor, renderer.InboundOpenConnectorColor:
		if err := s.HandleOpenColorStep(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unhandled inbound kind: %s", evt.Kind)
	}
	return nil
}
