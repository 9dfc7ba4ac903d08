package options

import (
	"strings"
	"testing"
)

func TestInstallOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*InstallOptions)
		wantErr string
	}{
		{"valid", func(o *InstallOptions) {}, ""},
		{"no package", func(o *InstallOptions) { o.UpdatePackage = "" }, "--update-package"},
		{"bad scheme", func(o *InstallOptions) { o.Scheme = "block" }, "unknown update scheme"},
		{"no verifier", func(o *InstallOptions) { o.SignatureVerifier = "" }, "--signature-verifier"},
		{"insecure", func(o *InstallOptions) { o.SignatureVerifier, o.InsecureSkipSignature = "", true }, ""},
		{"negative retries", func(o *InstallOptions) { o.MaxRetries = -1 }, "--max-retries"},
		{"negative retry count", func(o *InstallOptions) { o.RetryCount = -1 }, "--retry-count"},
		{"bad log level", func(o *InstallOptions) { o.Log.Level = "loud" }, "--log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewInstallOptions()
			o.UpdatePackage = "/data/ota_package/update.zip"
			o.SignatureVerifier = "/system/bin/otacert-check"
			tt.mutate(o)
			err := o.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestWatchOptionsValidate(t *testing.T) {
	o := NewWatchOptions()
	o.InsecureSkipSignature = true
	if err := o.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	o.Settle = 0
	if err := o.Validate(); err == nil {
		t.Error("zero settle accepted")
	}
}

func TestDefaults(t *testing.T) {
	o := NewInstallOptions()
	if o.LogFile != "/cache/recovery/last_install" || o.MaxRetries != 3 || o.Scheme != "auto" {
		t.Errorf("defaults = %+v", o.CommonOptions)
	}
	if o.LogOptions() != o.Log {
		t.Error("LogOptions() does not return the log section")
	}
}
