package command

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/autopeer-io/otarecovery/internal/device/props"
	"github.com/autopeer-io/otarecovery/internal/recovery/core"
	"github.com/autopeer-io/otarecovery/internal/recovery/metadata"
	"github.com/autopeer-io/otarecovery/internal/recovery/pkgaccess"
	"github.com/autopeer-io/otarecovery/internal/recovery/pkgaccess/pkgtest"
)

const abMetadata = "ota-type=AB\npre-device=walleye\npost-timestamp=1600000000\n"

var deviceProps = props.Map{
	props.ProductDevice: "walleye",
	props.BuildDateUTC:  "1500000000",
}

func openPackage(t *testing.T, entries ...pkgtest.Entry) *pkgaccess.Package {
	t.Helper()
	path := pkgtest.WriteZip(t, t.TempDir(), "update.zip", entries...)
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

func TestLegacyBuild(t *testing.T) {
	script := "#!/bin/sh\nexit 0\n"
	pkg := openPackage(t, pkgtest.Text(BinaryEntry, script))
	bin := filepath.Join(t.TempDir(), "update_binary")
	if err := os.WriteFile(bin, []byte("stale"), 0o600); err != nil {
		t.Fatal(err)
	}
	b := &Legacy{BinaryPath: bin}

	tests := []struct {
		name  string
		retry int
		want  []string
	}{
		{"first attempt", 0, []string{bin, "3", "3", pkg.Path()}},
		{"retry", 1, []string{bin, "3", "3", pkg.Path(), "retry"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := b.Build(core.NewSession(nil, tt.retry), pkg, 3)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if got := cmd.Args(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Args() = %q, want %q", got, tt.want)
			}
			if cmd.StatusFD != 3 {
				t.Errorf("StatusFD = %d", cmd.StatusFD)
			}
		})
	}

	data, err := os.ReadFile(bin)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != script {
		t.Errorf("extracted binary = %q", data)
	}
	fi, err := os.Stat(bin)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm()&0o111 == 0 {
		t.Errorf("extracted binary mode = %v, want executable", fi.Mode())
	}
}

func TestLegacyMissingBinaryIsCorrupt(t *testing.T) {
	pkg := openPackage(t, pkgtest.Text(metadata.Path, "ota-type=BLOCK\n"))
	_, err := (&Legacy{BinaryPath: filepath.Join(t.TempDir(), "bin")}).Build(core.NewSession(nil, 0), pkg, 3)
	if got := core.ResultOf(err); got != core.Corrupt {
		t.Fatalf("ResultOf(%v) = %v, want corrupt", err, got)
	}
}

func TestLegacyExtractionFailureIsError(t *testing.T) {
	pkg := openPackage(t, pkgtest.Text(BinaryEntry, "#!/bin/sh\n"))
	bin := filepath.Join(t.TempDir(), "no-such-dir", "update_binary")
	_, err := (&Legacy{BinaryPath: bin}).Build(core.NewSession(nil, 0), pkg, 3)
	if got := core.ResultOf(err); got != core.Error {
		t.Fatalf("ResultOf(%v) = %v, want error", err, got)
	}
}

func TestABBuild(t *testing.T) {
	payload := bytes.Repeat([]byte("PAYLOAD!"), 64)
	headers := "FILE_HASH=abc=\nFILE_SIZE=512\n"
	pkg := openPackage(t,
		pkgtest.Text(metadata.Path, abMetadata),
		pkgtest.Text(PropertiesEntry, headers),
		pkgtest.Entry{Name: PayloadEntry, Data: payload, Store: true},
	)

	cmd, err := (&AB{Props: deviceProps}).Build(core.NewSession(nil, 0), pkg, 7)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	args := cmd.Args()
	if len(args) != 5 {
		t.Fatalf("Args() = %q", args)
	}
	if args[0] != DefaultSideloadPath {
		t.Errorf("executor = %q", args[0])
	}
	if args[1] != "--payload=file://"+pkg.Path() {
		t.Errorf("payload arg = %q", args[1])
	}
	if args[3] != "--headers="+headers {
		t.Errorf("headers arg = %q", args[3])
	}
	if args[4] != "--status_fd=7" {
		t.Errorf("status arg = %q", args[4])
	}

	offset, err := strconv.Atoi(strings.TrimPrefix(args[2], "--offset="))
	if err != nil {
		t.Fatalf("offset arg = %q", args[2])
	}
	raw := pkg.Bytes()
	if offset+len(payload) > len(raw) || !bytes.Equal(raw[offset:offset+len(payload)], payload) {
		t.Errorf("offset %d does not point at the stored payload", offset)
	}
}

func TestABFailures(t *testing.T) {
	stored := pkgtest.Entry{Name: PayloadEntry, Data: []byte("payload"), Store: true}
	tests := []struct {
		name    string
		entries []pkgtest.Entry
		want    core.Result
	}{
		{
			name: "device mismatch",
			entries: []pkgtest.Entry{
				pkgtest.Text(metadata.Path, "ota-type=AB\npre-device=taimen\npost-timestamp=1600000000\n"),
				pkgtest.Text(PropertiesEntry, "x"),
				stored,
			},
			want: core.Error,
		},
		{
			name:    "no metadata",
			entries: []pkgtest.Entry{pkgtest.Text(PropertiesEntry, "x"), stored},
			want:    core.Corrupt,
		},
		{
			name:    "no properties",
			entries: []pkgtest.Entry{pkgtest.Text(metadata.Path, abMetadata), stored},
			want:    core.Corrupt,
		},
		{
			name:    "no payload",
			entries: []pkgtest.Entry{pkgtest.Text(metadata.Path, abMetadata), pkgtest.Text(PropertiesEntry, "x")},
			want:    core.Corrupt,
		},
		{
			name: "compressed payload",
			entries: []pkgtest.Entry{
				pkgtest.Text(metadata.Path, abMetadata),
				pkgtest.Text(PropertiesEntry, "x"),
				pkgtest.Text(PayloadEntry, "payload"),
			},
			want: core.Corrupt,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := openPackage(t, tt.entries...)
			_, err := (&AB{Props: deviceProps}).Build(core.NewSession(nil, 0), pkg, 3)
			if got := core.ResultOf(err); got != tt.want {
				t.Errorf("ResultOf(%v) = %v, want %v", err, got, tt.want)
			}
		})
	}
}

type recordingBuilder struct{ called bool }

func (r *recordingBuilder) Build(*core.Session, *pkgaccess.Package, int) (*UpdateCommand, error) {
	r.called = true
	return New(3, "recorded"), nil
}

func TestAutoDispatch(t *testing.T) {
	ab, legacy := &recordingBuilder{}, &recordingBuilder{}
	auto := &Auto{AB: ab, Legacy: legacy}

	pkg := openPackage(t, pkgtest.Entry{Name: PayloadEntry, Data: []byte("p"), Store: true})
	if _, err := auto.Build(nil, pkg, 3); err != nil {
		t.Fatal(err)
	}
	if !ab.called || legacy.called {
		t.Errorf("payload package: ab=%v legacy=%v", ab.called, legacy.called)
	}

	ab.called = false
	pkg = openPackage(t, pkgtest.Text(BinaryEntry, "#!/bin/sh\n"))
	if _, err := auto.Build(nil, pkg, 3); err != nil {
		t.Fatal(err)
	}
	if ab.called || !legacy.called {
		t.Errorf("legacy package: ab=%v legacy=%v", ab.called, legacy.called)
	}
}

func TestParseScheme(t *testing.T) {
	for _, name := range []string{"legacy", "AB", "auto"} {
		if _, err := ParseScheme(name); err != nil {
			t.Errorf("ParseScheme(%q) error = %v", name, err)
		}
	}
	if _, err := ParseScheme("block"); err == nil {
		t.Error("ParseScheme(block) should fail")
	}
}

func TestNewBuilder(t *testing.T) {
	store := props.Map{}
	if b, ok := NewBuilder(SchemeLegacy, store, "/tmp/ub", "").(*Legacy); !ok || b.BinaryPath != "/tmp/ub" {
		t.Errorf("legacy builder = %#v", b)
	}
	if b, ok := NewBuilder(SchemeAB, store, "", "/bin/sideload").(*AB); !ok || b.SideloadPath != "/bin/sideload" {
		t.Errorf("ab builder = %#v", b)
	}
	if _, ok := NewBuilder(SchemeAuto, store, "", "").(*Auto); !ok {
		t.Error("auto scheme should dispatch")
	}
}
