package mqtt

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ClientConfig holds the configuration for creating a new MQTT Client.
type ClientConfig struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string

	// KeepAlive in seconds. Default is 60.
	KeepAlive uint16

	// ConnectTimeout for the initial connection. Default is 5s.
	ConnectTimeout time.Duration

	// ReconnectInterval between connection attempts. Default is 3s.
	ReconnectInterval time.Duration

	// SessionExpiry in seconds, sent with CONNECT.
	SessionExpiry uint32

	// CleanStart indicates whether to start a clean session.
	CleanStart bool

	// InsecureSkipVerify disables TLS certificate verification. Only
	// meaningful for the TLS schemes.
	InsecureSkipVerify bool

	// Last will, published by the broker if the session drops. Disabled
	// when WillTopic is empty.
	WillTopic   string
	WillPayload []byte
	WillQoS     byte
	WillRetain  bool
}

// schemes accepted by autopaho, and whether they use TLS.
var schemes = map[string]bool{
	"mqtt": false, "tcp": false, "ws": false,
	"mqtts": true, "ssl": true, "tls": true, "wss": true,
}

func (c *ClientConfig) withDefaults() {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.ReconnectInterval == 0 {
		c.ReconnectInterval = 3 * time.Second
	}
	if c.KeepAlive == 0 {
		c.KeepAlive = 60
	}
}

// Validate checks if the configuration is valid.
func (c *ClientConfig) Validate() error {
	if c.BrokerURL == "" {
		return errors.New("broker url is required")
	}
	u, err := c.brokerURL()
	if err != nil {
		return err
	}
	if u.Host == "" {
		return fmt.Errorf("broker url %q has no host", c.BrokerURL)
	}
	if _, ok := schemes[u.Scheme]; !ok {
		return fmt.Errorf("broker url %q: unsupported scheme %q", c.BrokerURL, u.Scheme)
	}
	if c.WillQoS > 2 {
		return errors.New("will qos must be 0, 1 or 2")
	}
	return nil
}

func (c *ClientConfig) brokerURL() (*url.URL, error) {
	u, err := url.Parse(c.BrokerURL)
	if err != nil {
		return nil, fmt.Errorf("parse broker url: %w", err)
	}
	return u, nil
}
