package metadata

import (
	"errors"
	"reflect"
	"testing"

	"github.com/autopeer-io/otarecovery/internal/recovery/pkgaccess"
	"github.com/autopeer-io/otarecovery/internal/recovery/pkgaccess/pkgtest"
)

func TestParse(t *testing.T) {
	m := Parse("  ota-type=AB  \n" +
		"garbage line without equals\n" +
		"pre-device = walleye\n" +
		"post-build=google/walleye/walleye:8.1.0/OPM1/4543:user/release-keys\n" +
		"empty=\n" +
		"\n" +
		"equation=a=b\n")

	tests := []struct {
		key  string
		want string
	}{
		{"ota-type", "AB"},
		{"pre-device", "walleye"},
		{"post-build", "google/walleye/walleye:8.1.0/OPM1/4543:user/release-keys"},
		{"empty", ""},
		{"equation", "a=b"},
		{"missing", ""},
		{"garbage line without equals", ""},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := m.Get(tt.key); got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}

	if _, ok := m.Lookup("empty"); !ok {
		t.Error("Lookup(empty) should report presence")
	}
	if _, ok := m.Lookup("missing"); ok {
		t.Error("Lookup(missing) should report absence")
	}
	wantKeys := []string{"ota-type", "pre-device", "post-build", "empty", "equation"}
	if got := m.Keys(); !reflect.DeepEqual(got, wantKeys) {
		t.Errorf("Keys() = %q, want %q", got, wantKeys)
	}
}

func TestNilMetadataIsEmpty(t *testing.T) {
	var m *Metadata
	if got := m.Get("ota-type"); got != "" {
		t.Errorf("nil.Get() = %q", got)
	}
	if lines, bad := m.BuildNumbers(); lines != nil || bad != nil {
		t.Error("nil.BuildNumbers() should be empty")
	}
}

func TestBuildNumbers(t *testing.T) {
	m := Parse("pre-build-incremental=2943039\n" +
		"post-build-incremental=2951741\n" +
		"pre-build=fingerprint\n")

	lines, bad := m.BuildNumbers()
	want := []string{"source_build: 2943039", "target_build: 2951741"}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("BuildNumbers() = %q, want %q", lines, want)
	}
	if len(bad) != 0 {
		t.Errorf("bad = %q, want none", bad)
	}

	_, bad = Parse("post-build-incremental=eng.builder.20180101\n").BuildNumbers()
	if len(bad) != 1 {
		t.Errorf("non-numeric build number not reported: %q", bad)
	}
}

func TestBuildNumberFormats(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
		bad   bool
	}{
		{"leading zero is decimal", "0123", []string{"target_build: 123"}, false},
		{"digits past octal range", "089", []string{"target_build: 89"}, false},
		{"hex prefix", "0x1F", []string{"target_build: 31"}, false},
		{"surrounding space", " 42 ", []string{"target_build: 42"}, false},
		{"zero", "0", []string{"target_build: 0"}, false},
		{"negative", "-5", nil, true},
		{"overflow", "4294967296", nil, true},
		{"empty", "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, bad := Parse("post-build-incremental=" + tt.value + "\n").BuildNumbers()
			if !reflect.DeepEqual(lines, tt.want) {
				t.Errorf("BuildNumbers() = %q, want %q", lines, tt.want)
			}
			if (len(bad) == 1) != tt.bad {
				t.Errorf("bad = %q, want reported = %v", bad, tt.bad)
			}
		})
	}

	lines, _ := Parse("pre-build-incremental=0123\npost-build-incremental=-5\n").BuildNumbers()
	if want := []string{"source_build: 123"}; !reflect.DeepEqual(lines, want) {
		t.Errorf("BuildNumbers() = %q, want %q", lines, want)
	}
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	withMeta := pkgtest.WriteZip(t, dir, "a.zip", pkgtest.Text(Path, "ota-type=BLOCK\n"))
	withoutMeta := pkgtest.WriteZip(t, dir, "b.zip", pkgtest.Text("other", "x"))

	open := func(path string) *pkgaccess.Package {
		t.Helper()
		pkg, err := pkgaccess.Map(path)
		if err != nil {
			t.Fatalf("Map() error = %v", err)
		}
		if err := pkg.OpenArchive(); err != nil {
			t.Fatalf("OpenArchive() error = %v", err)
		}
		t.Cleanup(func() { pkg.Close() })
		return pkg
	}

	m, err := Read(open(withMeta))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got := m.Get(KeyOTAType); got != "BLOCK" {
		t.Errorf("ota-type = %q, want BLOCK", got)
	}

	if _, err := Read(open(withoutMeta)); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read() without metadata = %v, want ErrNotFound", err)
	}
}
