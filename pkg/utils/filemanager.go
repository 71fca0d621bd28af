// =============================================================================
// transferfix - File Manager Utility
// =============================================================================
//
// This module provides the file handling around a run:
//   - Directory management
//   - The per-run audit folder and its log file
//   - Output file naming and writing
//   - Renaming the run folder once the file type is known
//   - Removing old run folders
//
// FOLDER LAYOUT:
//   <log_folder>/
//     20240115_143022_a1b2c3d4/          <- while the run is in progress,
//       log.txt                             or when it failed
//     PTOC_00012345678_20240115_143022/  <- after a successful run
//       log.txt
//       PTOC_00012345678_20240115_143022.csv
//   <download_folder>/
//     PTOC_00012345678_20240115_143022.txt
//
// A failed run leaves only log.txt behind. Outputs are written through a
// temporary file and renamed into place, so a partial file is never visible.
//
// =============================================================================

package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/transferfix/internal/types"
)

// TimestampFormat is used in run folder and output names.
const TimestampFormat = "20060102_150405"

// LogFileName is the audit log inside each run folder.
const LogFileName = "log.txt"

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the converter.
type FileManager struct {
	// LogFolder holds one folder per run.
	LogFolder string

	// DownloadFolder receives the hand-off files.
	DownloadFolder string

	// Now returns the current time. Tests replace it.
	Now func() time.Time
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(logFolder, downloadFolder string) *FileManager {
	return &FileManager{
		LogFolder:      logFolder,
		DownloadFolder: downloadFolder,
		Now:            time.Now,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all required directories if they don't exist.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.LogFolder, fm.DownloadFolder} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// RUN FOLDERS
// =============================================================================

// Run is the audit folder of one run.
type Run struct {
	// ID is a short random identifier, also used as the logrus run_id field.
	ID string

	// Started is the time the run began. Output names use it.
	Started time.Time

	// Dir is the current folder path. It changes when the run is finalized.
	Dir string
}

// LogPath returns the path of the run's audit log.
func (r *Run) LogPath() string {
	return filepath.Join(r.Dir, LogFileName)
}

// StartRun creates a new run folder named after the start time and a short
// random id.
func (fm *FileManager) StartRun() (*Run, error) {
	if err := fm.EnsureDirectories(); err != nil {
		return nil, err
	}

	run := &Run{
		ID:      shortID(),
		Started: fm.Now(),
	}
	run.Dir = filepath.Join(fm.LogFolder, run.Started.Format(TimestampFormat)+"_"+run.ID)

	if err := os.Mkdir(run.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run folder: %w", err)
	}
	return run, nil
}

// OpenLog creates the run's audit log file.
func (r *Run) OpenLog() (*os.File, error) {
	f, err := os.Create(r.LogPath())
	if err != nil {
		return nil, fmt.Errorf("failed to create audit log: %w", err)
	}
	return f, nil
}

// Finalize renames the run folder to name. If a folder with that name already
// exists, the run id is appended.
//
// The audit log must be closed before calling Finalize.
func (fm *FileManager) Finalize(run *Run, name string) error {
	target := filepath.Join(fm.LogFolder, name)
	if FileExists(target) {
		target += "_" + run.ID
	}

	if err := os.Rename(run.Dir, target); err != nil {
		return fmt.Errorf("failed to rename run folder: %w", err)
	}
	run.Dir = target
	return nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// OutputBaseName generates the output name of a run.
//
// FORMAT:
//   {type}_{value}_{timestamp}
//
//   value is the fifth cell of the first record, the customer number in every
//   known layout. It is left out when the table is empty or the cell is blank.
//
// EXAMPLE:
//   PTOC_00012345678_20240115_143022
func OutputBaseName(ft types.FileType, table *types.Table, started time.Time) string {
	parts := []string{string(ft)}
	if table != nil && table.Len() > 0 {
		if value := SanitizeFileName(table.Cell(0, 4)); value != "" {
			parts = append(parts, value)
		}
	}
	parts = append(parts, started.Format(TimestampFormat))
	return strings.Join(parts, "_")
}

// SanitizeFileName replaces characters that are unsafe in file names.
func SanitizeFileName(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, s)
}

// =============================================================================
// OUTPUT WRITING
// =============================================================================

// WriteOutput writes data to dir/name through a temporary file in the same
// directory.
//
// RETURNS:
//   - The path of the written file.
//   - An error if writing fails. No file is left behind in that case.
func WriteOutput(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close %s: %w", name, err)
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move %s into place: %w", name, err)
	}
	return path, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// shortID returns the first eight hex digits of a random UUID.
func shortID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// CleanOldRuns removes run folders whose modification time is older than
// maxAge.
//
// PARAMETERS:
//   - logFolder: The folder holding the run folders.
//   - maxAge: The maximum age of folders to keep.
//
// RETURNS:
//   - The number of folders removed.
//   - An error if cleaning fails.
func CleanOldRuns(logFolder string, maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(logFolder)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read log folder: %w", err)
	}

	cutoff := now.Add(-maxAge)
	removed := 0

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return removed, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(logFolder, entry.Name())); err != nil {
			return removed, fmt.Errorf("failed to clean run folders: %w", err)
		}
		removed++
	}

	return removed, nil
}
