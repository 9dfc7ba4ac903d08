package options

import (
	"testing"
)

func TestServeOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServeOptions)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*ServeOptions) {}},
		{name: "http disabled", mutate: func(o *ServeOptions) { o.HttpOptions.Addr = "" }},
		{name: "unix socket", mutate: func(o *ServeOptions) {
			o.GrpcOptions.Network = "unix"
			o.GrpcOptions.Addr = "/run/bootctl.sock"
		}},
		{name: "empty state file", mutate: func(o *ServeOptions) { o.StateFile = "" }, wantErr: true},
		{name: "bad http addr", mutate: func(o *ServeOptions) { o.HttpOptions.Addr = "localhost" }, wantErr: true},
		{name: "bad log level", mutate: func(o *ServeOptions) { o.Log.Level = "loud" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewServeOptions()
			tt.mutate(o)
			if err := o.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServeConfig(t *testing.T) {
	o := NewServeOptions()
	cfg := o.Config()
	if cfg.GrpcOptions != o.GrpcOptions || cfg.HttpOptions != o.HttpOptions {
		t.Error("Config() does not share the option sections")
	}
}

func TestClientOptions(t *testing.T) {
	o := NewClientOptions()
	if o.Log.Level != "warn" {
		t.Errorf("client log level = %q, want warn", o.Log.Level)
	}
	if err := o.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	o.GrpcOptions.Timeout = 0
	if err := o.Validate(); err == nil {
		t.Error("zero timeout accepted")
	}
}

func TestSetActiveOptionsValidate(t *testing.T) {
	o := NewSetActiveOptions()
	if err := o.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	o.StateFile = ""
	if err := o.Validate(); err == nil {
		t.Error("empty state file accepted")
	}
}
