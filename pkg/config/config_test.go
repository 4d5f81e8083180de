package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/odvcencio/ogit/pkg/object"
)

func TestLoadMissingFile(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *f != (File{}) {
		t.Fatalf("file = %+v, want empty", f)
	}
}

func TestLoadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := "[user]\nname = \"Ada\"\nemail = \"ada@example.com\"\n\n[http]\ntimeout = \"90s\"\nattempts = 5\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.User.Name != "Ada" || f.User.Email != "ada@example.com" || f.HTTP.Attempts != 5 {
		t.Fatalf("file = %+v", f)
	}
	d, err := f.HTTP.TimeoutDuration()
	if err != nil || d != 90*time.Second {
		t.Fatalf("timeout = %v, %v", d, err)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "[user\nname = 1\n"},
		{"unknown key", "[user]\nnick = \"a\"\n"},
		{"wrong type", "[http]\nattempts = \"many\"\n"},
		{"bad timeout", "[http]\ntimeout = \"soon\"\n"},
		{"negative attempts", "[http]\nattempts = -2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.data), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); object.KindOf(err) != object.KindMalformed {
				t.Fatalf("err = %v, want malformed", err)
			}
		})
	}
}

func TestUnknownKeyNamedInError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[user]\nnick = \"a\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "user.nick") {
		t.Fatalf("err = %v, want it to name user.nick", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	f := &File{}
	for key, value := range map[string]string{
		"user.name":     "Ada",
		"user.email":    "ada@example.com",
		"http.timeout":  "2m",
		"http.attempts": "4",
	} {
		if err := f.Set(key, value); err != nil {
			t.Fatalf("Set(%s): %v", key, err)
		}
	}
	if err := f.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *f {
		t.Fatalf("loaded %+v, want %+v", got, f)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("leftover files in config dir: %v", entries)
	}
}

func TestGet(t *testing.T) {
	f := &File{User: UserSection{Name: "Ada"}, HTTP: HTTPSection{Attempts: 2}}

	if v, err := f.Get("user.name"); err != nil || v != "Ada" {
		t.Fatalf("user.name = %q, %v", v, err)
	}
	if v, err := f.Get("http.attempts"); err != nil || v != "2" {
		t.Fatalf("http.attempts = %q, %v", v, err)
	}
	if _, err := f.Get("user.email"); object.KindOf(err) != object.KindNotFound {
		t.Fatalf("unset err = %v, want not-found", err)
	}
	if _, err := f.Get("core.editor"); object.KindOf(err) != object.KindMalformed {
		t.Fatalf("unknown err = %v, want malformed", err)
	}
}

func TestSetValidates(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"user.name", "Ada <x>"},
		{"user.email", "a\nb"},
		{"http.timeout", "-1s"},
		{"http.timeout", "later"},
		{"http.attempts", "0"},
		{"http.attempts", "three"},
		{"core.bare", "true"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			f := &File{}
			if err := f.Set(tt.key, tt.value); object.KindOf(err) != object.KindMalformed {
				t.Fatalf("err = %v, want malformed", err)
			}
			if *f != (File{}) {
				t.Fatalf("file modified on rejected set: %+v", f)
			}
		})
	}
}

func TestKeysSorted(t *testing.T) {
	want := []string{"http.attempts", "http.timeout", "user.email", "user.name"}
	got := Keys()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Keys = %v, want %v", got, want)
	}
}

func TestDefaultPath(t *testing.T) {
	path, err := DefaultPath()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	if filepath.Base(path) != "config.toml" || filepath.Base(filepath.Dir(path)) != ".ogit" {
		t.Fatalf("DefaultPath = %q", path)
	}
}
