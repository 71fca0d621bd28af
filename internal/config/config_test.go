package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/transferfix/internal/types"
)

const referencePath = "../../configs/reference.yaml"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadMainConfigDefaults(t *testing.T) {
	cfg, err := LoadMainConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogFolder != "./logs" {
		t.Errorf("LogFolder got %q, want %q", cfg.LogFolder, "./logs")
	}
	if cfg.DistributorAmbiguity != PolicyError {
		t.Errorf("DistributorAmbiguity got %q, want %q", cfg.DistributorAmbiguity, PolicyError)
	}
	if strings.Join(cfg.OutputFormats, ",") != "csv,txt" {
		t.Errorf("OutputFormats got %v", cfg.OutputFormats)
	}
}

func TestLoadMainConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
log_folder: /tmp/audit
output_formats: [CSV, xlsx]
distributor_ambiguity: warn
`)
	cfg, err := LoadMainConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogFolder != "/tmp/audit" {
		t.Errorf("LogFolder got %q", cfg.LogFolder)
	}
	if strings.Join(cfg.OutputFormats, ",") != "csv,xlsx" {
		t.Errorf("OutputFormats got %v", cfg.OutputFormats)
	}
	if cfg.DistributorAmbiguity != PolicyWarn {
		t.Errorf("DistributorAmbiguity got %q", cfg.DistributorAmbiguity)
	}
}

func TestLoadMainConfigEnvOverride(t *testing.T) {
	t.Setenv(EnvDownloadFolder, "/srv/downloads")
	cfg, err := LoadMainConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DownloadFolder != "/srv/downloads" {
		t.Errorf("DownloadFolder got %q", cfg.DownloadFolder)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".env", EnvLogFolder+"=/from/dotenv\n")
	t.Setenv(EnvLogFolder, "")
	os.Unsetenv(EnvLogFolder)

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv(EnvLogFolder); got != "/from/dotenv" {
		t.Errorf("got %q, want %q", got, "/from/dotenv")
	}
	if err := LoadEnvFile(filepath.Join(dir, "absent.env")); err != nil {
		t.Errorf("missing env file should be ignored, got %v", err)
	}
}

func TestLoadMainConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad format", "output_formats: [pdf]"},
		{"bad policy", "distributor_ambiguity: ignore"},
		{"bad level", "log_level: loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", tt.content)
			if _, err := LoadMainConfig(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadReference(t *testing.T) {
	ref, err := LoadReference(referencePath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for ft, want := range SchemaLengths {
		schema, err := ref.Schema(ft)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(schema.Columns) != want {
			t.Errorf("%s got %d columns, want %d", ft, len(schema.Columns), want)
		}
	}
	if ref.CustomerNumberWidth != 11 {
		t.Errorf("CustomerNumberWidth got %d, want 11", ref.CustomerNumberWidth)
	}
	if ref.Placeholders.Tax != "Skatteopplysninger" {
		t.Errorf("tax placeholder got %q", ref.Placeholders.Tax)
	}
}

func TestReferenceValidateRejectsWrongLength(t *testing.T) {
	ref, err := LoadReference(referencePath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	schema, _ := ref.Schema(types.RFH)
	schema.Columns = schema.Columns[:8]
	if err := ref.Validate(); err == nil {
		t.Error("expected error for 8-column RFH schema")
	}
}

func TestReferenceValidateChecksFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *Fields)
		want   string
	}{
		{"empty field", func(f *Fields) { f.CashValue = "" }, "fields.cash_value is required for RHC"},
		{"misspelled field", func(f *Fields) { f.CashValue = "VERDY" }, `fields.cash_value "VERDY" is not a column of RHC`},
		{"field missing from one layout", func(f *Fields) { f.Units = "ANTALL_FLYTTET" }, `fields.units "ANTALL_FLYTTET" is not a column of PTOI`},
		{"empty transfer ref", func(f *Fields) { f.TransferRef = "" }, "fields.transfer_ref is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := LoadReference(referencePath)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.mutate(&ref.Fields)

			err = ref.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestColumnRangeContains(t *testing.T) {
	tests := []struct {
		r    ColumnRange
		n    int
		want bool
	}{
		{ColumnRange{Min: 14, Max: 20}, 14, true},
		{ColumnRange{Min: 14, Max: 20}, 21, false},
		{ColumnRange{}, 0, false},
	}
	for _, tt := range tests {
		if got := tt.r.Contains(tt.n); got != tt.want {
			t.Errorf("%+v.Contains(%d) got %v, want %v", tt.r, tt.n, got, tt.want)
		}
	}
}
