package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/autopeer-io/otarecovery/pkg/log"
)

// ErrNotStarted is returned by calls that need a connection manager before
// Start has succeeded.
var ErrNotStarted = errors.New("mqtt client not started")

type client struct {
	cfg    *ClientConfig
	logger log.Logger

	cm *autopaho.ConnectionManager
	up atomic.Bool
}

// NewClient validates cfg, filling defaults, and returns a Client that has
// not connected yet.
func NewClient(cfg *ClientConfig) (Client, error) {
	if cfg == nil {
		return nil, errors.New("mqtt config is required")
	}
	cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mqtt config: %w", err)
	}
	return &client{
		cfg:    cfg,
		logger: log.WithName("mqtt").WithValues("broker", cfg.BrokerURL, "clientID", cfg.ClientID),
	}, nil
}

func (c *client) Start(ctx context.Context) error {
	u, err := c.cfg.brokerURL()
	if err != nil {
		return err
	}
	cm, err := autopaho.NewConnection(ctx, c.connectionConfig(u))
	if err != nil {
		return fmt.Errorf("start mqtt connection: %w", err)
	}
	c.cm = cm
	c.logger.Info("MQTT client started")
	return nil
}

func (c *client) connectionConfig(u *url.URL) autopaho.ClientConfig {
	return autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{u},
		KeepAlive:                     c.cfg.KeepAlive,
		CleanStartOnInitialConnection: c.cfg.CleanStart,
		SessionExpiryInterval:         c.cfg.SessionExpiry,
		ReconnectBackoff:              autopaho.NewConstantBackoff(c.cfg.ReconnectInterval),
		ConnectTimeout:                c.cfg.ConnectTimeout,
		ConnectUsername:               c.cfg.Username,
		ConnectPassword:               []byte(c.cfg.Password),
		TlsCfg:                        c.tlsConfig(u),
		WillMessage:                   c.willMessage(),
		OnConnectionUp: func(*autopaho.ConnectionManager, *paho.Connack) {
			c.up.Store(true)
			c.logger.Info("MQTT connection up")
		},
		OnConnectError: func(err error) {
			c.up.Store(false)
			c.logger.Warn("MQTT connect failed, will retry", "error", err.Error())
		},
		ClientConfig: paho.ClientConfig{
			ClientID: c.cfg.ClientID,
			OnClientError: func(err error) {
				c.up.Store(false)
				c.logger.Error(err, "MQTT client error")
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				c.up.Store(false)
				var reason string
				if d.Properties != nil {
					reason = d.Properties.ReasonString
				}
				c.logger.Warn("MQTT broker closed the session", "code", d.ReasonCode, "reason", reason)
			},
		},
	}
}

// tlsConfig is nil for plain schemes.
func (c *client) tlsConfig(u *url.URL) *tls.Config {
	if !schemes[u.Scheme] {
		return nil
	}
	return &tls.Config{InsecureSkipVerify: c.cfg.InsecureSkipVerify}
}

func (c *client) willMessage() *paho.WillMessage {
	if c.cfg.WillTopic == "" {
		return nil
	}
	return &paho.WillMessage{
		Topic:   c.cfg.WillTopic,
		Payload: c.cfg.WillPayload,
		QoS:     c.cfg.WillQoS,
		Retain:  c.cfg.WillRetain,
	}
}

func (c *client) Disconnect(ctx context.Context) {
	if c.cm == nil {
		return
	}
	if err := c.cm.Disconnect(ctx); err != nil {
		c.logger.Debug("MQTT disconnect", "error", err.Error())
	}
	c.up.Store(false)
	c.cm = nil
}

func (c *client) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	if c.cm == nil {
		return ErrNotStarted
	}
	if qos < 0 || qos > 2 {
		return fmt.Errorf("publish %s: invalid qos %d", topic, qos)
	}
	if _, err := c.cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     byte(qos),
		Retain:  retain,
		Payload: payload,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (c *client) AwaitConnection(ctx context.Context) error {
	if c.cm == nil {
		return ErrNotStarted
	}
	return c.cm.AwaitConnection(ctx)
}

func (c *client) IsConnected() bool { return c.up.Load() }
