package cmd

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/ginjaninja78/transferfix/internal/config"
	"github.com/ginjaninja78/transferfix/internal/validation"
	"github.com/ginjaninja78/transferfix/pkg/utils"
)

const rfhExport = "h0;h1;h2;h3;h4;h5;h6;h7;h8\n" +
	"dnb bank;ODIN;M1;T1;123;Kari;NO0010000001;NOK;\n" +
	"DNB;ODIN;M1;T2;456;Kari;NO0010000002;NOK;\n"

func newRequest(t *testing.T, raw string) (processRequest, *bytes.Buffer) {
	t.Helper()

	ref, err := config.LoadReference(filepath.Join("..", "configs", "reference.yaml"))
	if err != nil {
		t.Fatalf("LoadReference: %v", err)
	}

	root := t.TempDir()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	var out bytes.Buffer
	return processRequest{
		config: &config.MainConfig{
			LogFolder:            filepath.Join(root, "logs"),
			DownloadFolder:       filepath.Join(root, "downloads"),
			OutputFormats:        []string{"csv", "txt", "xml"},
			DistributorAmbiguity: config.PolicyError,
		},
		reference: ref,
		logger:    logger,
		raw:       raw,
		formats:   []string{"csv", "txt", "xml"},
		out:       &out,
	}, &out
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir %s: %v", dir, err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}

func TestProcessExport(t *testing.T) {
	req, out := newRequest(t, rfhExport)

	outcome, err := processExport(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	base := filepath.Base(outcome.runDir)
	if !strings.HasPrefix(base, "RFH_00000000123_") {
		t.Errorf("run folder got %q, want prefix %q", base, "RFH_00000000123_")
	}

	inRun := listDir(t, outcome.runDir)
	if len(inRun) != 2 {
		t.Fatalf("run folder got %v, want log and csv", inRun)
	}
	csvData, err := os.ReadFile(filepath.Join(outcome.runDir, base+".csv"))
	if err != nil {
		t.Fatalf("csv missing: %v", err)
	}
	if !strings.HasPrefix(string(csvData), "AVGIVENDE_TILBYDER;MOTTAKENDE_TILBYDER;") {
		t.Errorf("csv header got %q", strings.SplitN(string(csvData), "\n", 2)[0])
	}

	downloads := listDir(t, req.config.DownloadFolder)
	if len(downloads) != 2 {
		t.Fatalf("download folder got %v, want txt and xml", downloads)
	}
	txtData, err := os.ReadFile(filepath.Join(req.config.DownloadFolder, base+".txt"))
	if err != nil {
		t.Fatalf("txt missing: %v", err)
	}
	if !strings.Contains(string(txtData), "DNB\tODIN\tM1\tT1\t00000000123") {
		t.Errorf("txt got %q", txtData)
	}

	logData, err := os.ReadFile(filepath.Join(outcome.runDir, utils.LogFileName))
	if err != nil {
		t.Fatalf("log missing: %v", err)
	}
	for _, heading := range []string{"USER INPUT", "SEPARATOR", "IDENTIFY FILE TYPE", "PAD CUSTOMER NUMBER", "OUTPUT"} {
		if !strings.Contains(string(logData), heading) {
			t.Errorf("log missing %q", heading)
		}
	}

	if !strings.Contains(out.String(), "File type:          RFH") {
		t.Errorf("summary got %q", out.String())
	}
}

func TestProcessExportFailureLeavesOnlyLog(t *testing.T) {
	req, _ := newRequest(t, "no separator here\n")

	_, err := processExport(req)
	var pe *validation.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("got %v, want *validation.ParseError", err)
	}

	runs := listDir(t, req.config.LogFolder)
	if len(runs) != 1 {
		t.Fatalf("log folder got %v, want one run folder", runs)
	}
	runDir := filepath.Join(req.config.LogFolder, runs[0])
	if got := listDir(t, runDir); len(got) != 1 || got[0] != utils.LogFileName {
		t.Errorf("run folder got %v, want only %s", got, utils.LogFileName)
	}
	logData, err := os.ReadFile(filepath.Join(runDir, utils.LogFileName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(logData), "ERROR") {
		t.Errorf("log has no ERROR entry:\n%s", logData)
	}
	if got := listDir(t, req.config.DownloadFolder); len(got) != 0 {
		t.Errorf("download folder got %v, want empty", got)
	}
}

func TestProcessExportUnknownFormat(t *testing.T) {
	req, _ := newRequest(t, rfhExport)
	req.formats = []string{"txt", "pdf"}

	if _, err := processExport(req); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if got := listDir(t, req.config.DownloadFolder); len(got) != 0 {
		t.Errorf("download folder got %v, want empty", got)
	}
}

func TestProcessExportDryRun(t *testing.T) {
	req, out := newRequest(t, rfhExport)
	req.dryRun = true

	if _, err := processExport(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if utils.FileExists(req.config.LogFolder) {
		t.Error("dry run created the log folder")
	}
	if !strings.Contains(out.String(), "IDENTIFY FILE TYPE") {
		t.Errorf("audit log not printed:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "AVGIVENDE_TILBYDER;") {
		t.Errorf("csv not printed:\n%s", out.String())
	}
}

func TestInputLines(t *testing.T) {
	if got := inputLines("a\nb\n"); len(got) != 2 || got[1] != "b" {
		t.Errorf("got %v", got)
	}
	if got := inputLines(""); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}
