package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ginjaninja78/transferfix/internal/types"
)

var fixedTime = time.Date(2024, 1, 15, 14, 30, 22, 0, time.UTC)

func newTestManager(t *testing.T) *FileManager {
	t.Helper()
	root := t.TempDir()
	fm := NewFileManager(filepath.Join(root, "logs"), filepath.Join(root, "downloads"))
	fm.Now = func() time.Time { return fixedTime }
	return fm
}

func TestStartRunAndFinalize(t *testing.T) {
	fm := newTestManager(t)

	run, err := fm.StartRun()
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if len(run.ID) != 8 {
		t.Errorf("id got %q, want 8 characters", run.ID)
	}
	if want := "20240115_143022_" + run.ID; filepath.Base(run.Dir) != want {
		t.Errorf("folder got %q, want %q", filepath.Base(run.Dir), want)
	}
	if !FileExists(fm.DownloadFolder) {
		t.Error("download folder not created")
	}

	f, err := run.OpenLog()
	if err != nil {
		t.Fatalf("OpenLog: %v", err)
	}
	f.WriteString("entry\n")
	f.Close()

	if err := fm.Finalize(run, "RFH_123_20240115_143022"); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if filepath.Base(run.Dir) != "RFH_123_20240115_143022" {
		t.Errorf("finalized folder got %q", run.Dir)
	}
	data, err := os.ReadFile(run.LogPath())
	if err != nil {
		t.Fatalf("log not moved: %v", err)
	}
	if string(data) != "entry\n" {
		t.Errorf("log got %q", data)
	}
}

func TestFinalizeExistingName(t *testing.T) {
	fm := newTestManager(t)

	if err := os.MkdirAll(filepath.Join(fm.LogFolder, "NTO_20240115_143022"), 0755); err != nil {
		t.Fatal(err)
	}

	run, err := fm.StartRun()
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := fm.Finalize(run, "NTO_20240115_143022"); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if want := "NTO_20240115_143022_" + run.ID; filepath.Base(run.Dir) != want {
		t.Errorf("folder got %q, want %q", filepath.Base(run.Dir), want)
	}
}

func TestOutputBaseName(t *testing.T) {
	table := &types.Table{
		Columns: []string{"A", "B", "C", "D", "KUNDENR"},
		Records: []types.Record{{Row: 1, Cells: []string{"1", "2", "3", "4", "00012 34"}}},
	}

	tests := []struct {
		name  string
		ft    types.FileType
		table *types.Table
		want  string
	}{
		{"with value", types.PTOC, table, "PTOC_00012_34_20240115_143022"},
		{"empty table", types.NTO, &types.Table{Columns: table.Columns}, "NTO_20240115_143022"},
		{"nil table", types.RFH, nil, "RFH_20240115_143022"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OutputBaseName(tt.ft, tt.table, fixedTime); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got, want := SanitizeFileName(" a/b:c\t"), "a_b_c"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWriteOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	path, err := WriteOutput(dir, "x.txt", []byte("hello"))
	if err != nil {
		t.Fatalf("WriteOutput: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("got %q, want %q", data, "hello")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestCleanOldRuns(t *testing.T) {
	logs := t.TempDir()
	old := filepath.Join(logs, "old")
	fresh := filepath.Join(logs, "fresh")
	for _, dir := range []string{old, fresh} {
		if err := os.Mkdir(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}
	past := fixedTime.Add(-48 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(fresh, fixedTime, fixedTime); err != nil {
		t.Fatal(err)
	}

	removed, err := CleanOldRuns(logs, 24*time.Hour, fixedTime)
	if err != nil {
		t.Fatalf("CleanOldRuns: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed got %d, want 1", removed)
	}
	if FileExists(old) || !FileExists(fresh) {
		t.Error("wrong folder removed")
	}
}

func TestCleanOldRunsMissingFolder(t *testing.T) {
	removed, err := CleanOldRuns(filepath.Join(t.TempDir(), "none"), time.Hour, fixedTime)
	if err != nil || removed != 0 {
		t.Errorf("got (%d, %v), want (0, nil)", removed, err)
	}
}
