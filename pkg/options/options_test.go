package options

import (
	"testing"
	"time"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{"127.0.0.1:8091", false},
		{":8080", false},
		{"localhost:80", false},
		{"[::1]:443", false},
		{"127.0.0.1", true},
		{"127.0.0.1:http", true},
		{"127.0.0.1:70000", true},
		{"/run/bootctl.sock", true},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			if err := ValidateAddress(tt.addr); (err != nil) != tt.wantErr {
				t.Errorf("ValidateAddress(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			}
		})
	}
}

func TestGrpcOptions(t *testing.T) {
	tests := []struct {
		name   string
		opts   GrpcOptions
		target string
		errs   int
	}{
		{"tcp default", *NewGrpcOptions(), "127.0.0.1:8091", 0},
		{"unix socket", GrpcOptions{Network: "unix", Addr: "/run/bootctl.sock", Timeout: time.Second}, "unix:///run/bootctl.sock", 0},
		{"unix without path", GrpcOptions{Network: "unix", Timeout: time.Second}, "unix://", 1},
		{"bad network", GrpcOptions{Network: "udp", Addr: ":1", Timeout: time.Second}, ":1", 1},
		{"no timeout", GrpcOptions{Network: "tcp", Addr: ":1"}, ":1", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.Target(); got != tt.target {
				t.Errorf("Target() = %q, want %q", got, tt.target)
			}
			if errs := tt.opts.Validate(); len(errs) != tt.errs {
				t.Errorf("Validate() = %v, want %d errors", errs, tt.errs)
			}
		})
	}
}

func TestOptionalSinks(t *testing.T) {
	m := NewMqttOptions()
	if m.Enabled() || len(m.Validate()) != 0 {
		t.Errorf("default mqtt options should be disabled and valid")
	}
	m.Broker = "tcp://broker:1883"
	if !m.Enabled() || len(m.Validate()) != 0 {
		t.Errorf("mqtt with broker: enabled=%v errs=%v", m.Enabled(), m.Validate())
	}
	m.TopicRoot = ""
	if len(m.Validate()) != 1 {
		t.Errorf("empty topic root accepted")
	}

	s := NewS3Options()
	if s.Enabled() || len(s.Validate()) != 0 {
		t.Errorf("default s3 options should be disabled and valid")
	}
	s.Endpoint = "minio.local:9000"
	if errs := s.Validate(); len(errs) != 1 {
		t.Errorf("s3 without credentials: %v", errs)
	}
	s.AccessKeyID, s.SecretAccessKey = "ak", "sk"
	if errs := s.Validate(); len(errs) != 0 {
		t.Errorf("s3 with credentials: %v", errs)
	}

	h := NewHttpOptions()
	h.Addr = ""
	if errs := h.Validate(); len(errs) != 0 {
		t.Errorf("disabled http: %v", errs)
	}
}

func TestMqttClientConfig(t *testing.T) {
	m := NewMqttOptions()
	m.Broker = "mqtts://broker:8883"
	m.KeepAlive = 90 * time.Second
	cfg := m.ToClientConfig()
	if cfg.KeepAlive != 90 || cfg.ReconnectInterval != 3*time.Second || cfg.BrokerURL != m.Broker {
		t.Errorf("ToClientConfig() = %+v", cfg)
	}

	m.KeepAlive = 500 * time.Millisecond
	if errs := m.Validate(); len(errs) != 1 {
		t.Errorf("sub-second keep alive: %v", errs)
	}
	m.KeepAlive = 70000 * time.Second
	if errs := m.Validate(); len(errs) != 1 {
		t.Errorf("overflowing keep alive: %v", errs)
	}
}
