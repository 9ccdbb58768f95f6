// Package logging provides the daily-rotated log writer shared by the
// coordinator and agent processes.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	logPrefix  = "netjobs-"
	logSuffix  = ".log"
	logFixed   = "netjobs.log"
	dateFormat = "20060102"
)

// RotatingWriter is an io.Writer that writes to both stdout and a
// daily-rotated log file.
//   - Rotation enabled:  netjobs-YYYYMMDD.log, new file each day
//   - Rotation disabled: netjobs.log (fixed name)
//   - Old log files are zstd-archived, then removed past keepDays
type RotatingWriter struct {
	mu              sync.Mutex
	logDir          string
	rotationEnabled bool
	keepDays        int
	archiveEnabled  bool

	currentFile *os.File
	currentDate string // YYYYMMDD of the open file
}

// NewRotatingWriter creates a RotatingWriter. The file is opened lazily on
// first Write.
func NewRotatingWriter(logDir string, rotationEnabled bool, keepDays int, archiveEnabled bool) *RotatingWriter {
	return &RotatingWriter{
		logDir:          logDir,
		rotationEnabled: rotationEnabled,
		keepDays:        keepDays,
		archiveEnabled:  archiveEnabled,
	}
}

// Write implements io.Writer. It writes to both stdout and the log file.
func (w *RotatingWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.ensureFile(); err != nil {
		return len(p), nil // don't fail the caller if file logging fails
	}

	n, err = w.currentFile.Write(p)
	if err != nil {
		w.closeFileLocked()
		return len(p), nil
	}
	return n, nil
}

// Start begins background goroutines for daily rotation and hourly cleanup.
func (w *RotatingWriter) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.checkRotation()
			}
		}
	}()

	go func() {
		w.clearOldLogs()

		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.clearOldLogs()
			}
		}
	}()
}

// Close closes the underlying file.
func (w *RotatingWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeFileLocked()
}

func (w *RotatingWriter) ensureFile() error {
	today := time.Now().Format(dateFormat)

	if w.currentFile != nil && w.currentDate == today {
		return nil
	}

	w.closeFileLocked()

	if err := os.MkdirAll(w.logDir, 0755); err != nil {
		return err
	}

	var filename string
	if w.rotationEnabled {
		filename = logPrefix + today + logSuffix
	} else {
		filename = logFixed
	}

	f, err := os.OpenFile(
		filepath.Join(w.logDir, filename),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND,
		0644,
	)
	if err != nil {
		return err
	}

	w.currentFile = f
	w.currentDate = today
	return nil
}

func (w *RotatingWriter) closeFileLocked() {
	if w.currentFile != nil {
		w.currentFile.Close()
		w.currentFile = nil
		w.currentDate = ""
	}
}

// checkRotation closes the file when the date changes so ensureFile opens a
// new one, then archives the file that just rotated out.
func (w *RotatingWriter) checkRotation() {
	w.mu.Lock()
	rotationEnabled := w.rotationEnabled
	prevDate := w.currentDate
	today := time.Now().Format(dateFormat)
	if rotationEnabled && prevDate != "" && prevDate != today {
		w.closeFileLocked()
	}
	w.mu.Unlock()

	if rotationEnabled && w.archiveEnabled && prevDate != "" && prevDate != today {
		path := filepath.Join(w.logDir, logPrefix+prevDate+logSuffix)
		if err := archiveFile(path); err != nil {
			fmt.Fprintf(os.Stdout, "time=%s level=WARN msg=\"log archive failed\" path=%s error=%q\n",
				time.Now().Format(time.RFC3339), path, err)
		}
	}
}

// clearOldLogs deletes (archived or plain) log files older than keepDays.
func (w *RotatingWriter) clearOldLogs() {
	if !w.rotationEnabled || w.keepDays <= 0 {
		return
	}

	entries, err := os.ReadDir(w.logDir)
	if err != nil {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -w.keepDays)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		base := strings.TrimSuffix(name, archiveSuffix)
		if !strings.HasPrefix(base, logPrefix) || !strings.HasSuffix(base, logSuffix) {
			continue
		}

		dateStr := strings.TrimPrefix(base, logPrefix)
		dateStr = strings.TrimSuffix(dateStr, logSuffix)
		if len(dateStr) != 8 {
			continue
		}

		fileDate, err := time.Parse(dateFormat, dateStr)
		if err != nil {
			continue
		}

		if fileDate.Before(cutoff) {
			path := filepath.Join(w.logDir, name)
			if err := os.Remove(path); err == nil {
				fmt.Fprintf(os.Stdout, "time=%s level=INFO msg=\"deleted old log file\" path=%s\n",
					time.Now().Format(time.RFC3339), path)
			}
		}
	}
}

// SetupWriter creates a RotatingWriter and returns an io.Writer suitable for
// slog. If logDir is empty, returns os.Stdout only.
func SetupWriter(logDir string, rotationEnabled bool, keepDays int, archiveEnabled bool) io.Writer {
	if logDir == "" {
		return os.Stdout
	}
	return NewRotatingWriter(logDir, rotationEnabled, keepDays, archiveEnabled)
}
