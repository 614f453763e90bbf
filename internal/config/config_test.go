package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/paupaudragon/LiteSheet/packages/spreadsheet"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultPath)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Default()
	if cfg.Version != want.Version || cfg.LogLevel != want.LogLevel || cfg.Names != want.Names || cfg.Storage != want.Storage {
		t.Errorf("Load() = %+v, want defaults %+v", cfg, want)
	}
	if cfg.Storage.LockTimeout.Duration != spreadsheet.DefaultLockTimeout {
		t.Errorf("LockTimeout = %v, want %v", cfg.Storage.LockTimeout, spreadsheet.DefaultLockTimeout)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
version = "2.0"
log_level = "debug"

[names]
normalize = "lower"

[storage]
lock_timeout = "750ms"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Version != "2.0" {
		t.Errorf("Version = %q, want %q", cfg.Version, "2.0")
	}
	if cfg.Names.Normalize != NormalizeLower {
		t.Errorf("Names.Normalize = %q, want %q", cfg.Names.Normalize, NormalizeLower)
	}
	// keys missing from the file keep their defaults
	if cfg.Names.Pattern != Default().Names.Pattern {
		t.Errorf("Names.Pattern = %q, want the default", cfg.Names.Pattern)
	}
	if cfg.Storage.HistoryFile != Default().Storage.HistoryFile {
		t.Errorf("Storage.HistoryFile = %q, want the default", cfg.Storage.HistoryFile)
	}
	if cfg.Storage.LockTimeout.Duration != 750*time.Millisecond {
		t.Errorf("LockTimeout = %v, want 750ms", cfg.Storage.LockTimeout)
	}

	level, err := cfg.Level()
	if err != nil || level != zerolog.DebugLevel {
		t.Errorf("Level() = %v, %v, want debug", level, err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		wantErr  string
	}{
		{"bad toml", `version = `, "parsing"},
		{"bad duration", "[storage]\nlock_timeout = \"soon\"", "invalid duration"},
		{"negative duration", "[storage]\nlock_timeout = \"-1s\"", "must not be negative"},
		{"bad normalize", "[names]\nnormalize = \"title\"", "names.normalize"},
		{"bad pattern", "[names]\npattern = \"[A-Z\"", "names.pattern"},
		{"bad level", `log_level = "loud"`, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.contents))
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizer(t *testing.T) {
	tests := []struct {
		mode string
		in   string
		want string
	}{
		{NormalizeNone, "aB1", "aB1"},
		{"", "aB1", "aB1"},
		{NormalizeUpper, "aB1", "AB1"},
		{NormalizeLower, "aB1", "ab1"},
	}

	for _, tt := range tests {
		cfg := Default()
		cfg.Names.Normalize = tt.mode
		normalize, err := cfg.Normalizer()
		if err != nil {
			t.Fatalf("Normalizer(%q) error = %v", tt.mode, err)
		}
		if got := normalize(tt.in); got != tt.want {
			t.Errorf("Normalizer(%q)(%q) = %q, want %q", tt.mode, tt.in, got, tt.want)
		}
	}
}

func TestValidator(t *testing.T) {
	validate, err := Default().Validator()
	if err != nil {
		t.Fatalf("Validator() error = %v", err)
	}
	for name, want := range map[string]bool{
		"A1":    true,
		"ZZ100": true,
		"A0":    false,
		"a1":    false,
		"total": false,
		"A1B":   false,
	} {
		if got := validate(name); got != want {
			t.Errorf("validate(%q) = %v, want %v", name, got, want)
		}
	}

	cfg := Default()
	cfg.Names.Pattern = ""
	validate, err = cfg.Validator()
	if err != nil {
		t.Fatalf("Validator() error = %v", err)
	}
	if !validate("anything_goes") {
		t.Error("an empty pattern should accept every name")
	}
}

func TestSheetOptions(t *testing.T) {
	cfg := Default()
	cfg.Version = "3"

	opts, err := cfg.SheetOptions(zerolog.Nop())
	if err != nil {
		t.Fatalf("SheetOptions() error = %v", err)
	}
	s := spreadsheet.NewSpreadsheet(opts...)

	if s.Version() != "3" {
		t.Errorf("Version() = %q, want %q", s.Version(), "3")
	}
	if _, err := s.SetContentsOfCell("b2", "4"); err != nil {
		t.Fatalf("SetContentsOfCell(b2) error = %v", err)
	}
	if got := s.NonEmptyCells(); len(got) != 1 || got[0] != "B2" {
		t.Errorf("NonEmptyCells() = %v, want [B2]", got)
	}
	if _, err := s.SetContentsOfCell("total", "4"); err == nil {
		t.Error("SetContentsOfCell(total) succeeded, want an invalid name error")
	}
}

func TestDurationRoundTrip(t *testing.T) {
	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(Default()); err != nil {
		t.Fatalf("encoding defaults: %v", err)
	}
	if !strings.Contains(buf.String(), `lock_timeout = "5s"`) {
		t.Errorf("encoded config missing lock_timeout:\n%s", buf.String())
	}

	var cfg Config
	if _, err := toml.Decode(buf.String(), &cfg); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if cfg.Storage.LockTimeout.Duration != spreadsheet.DefaultLockTimeout {
		t.Errorf("LockTimeout = %v, want %v", cfg.Storage.LockTimeout, spreadsheet.DefaultLockTimeout)
	}
}
