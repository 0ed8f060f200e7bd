package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"sync"
	"time"
)

// CrashReport is written for every panic the daemon recovers.
type CrashReport struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version"`
	GOOS       string    `json:"goos"`
	GOARCH     string    `json:"goarch"`
	PanicValue string    `json:"panic_value"`
	StackTrace string    `json:"stack_trace"`
	// Where names the execution context that panicked, e.g. "mainloop" or "main".
	Where   string `json:"where"`
	Binding string `json:"binding,omitempty"`
}

// CrashHandler records panics as JSON files in a directory.
type CrashHandler struct {
	mu       sync.Mutex
	dir      string
	version  string
	binding  string
	maxFiles int
	seq      int
}

// DefaultCrashDir returns the platform-specific default crash directory.
func DefaultCrashDir() string {
	return filepath.Join(filepath.Dir(DefaultLogPath()), "crashes")
}

// NewCrashHandler creates a handler writing to dir, keeping at most maxFiles reports.
func NewCrashHandler(dir, version string, maxFiles int) *CrashHandler {
	if dir == "" {
		dir = DefaultCrashDir()
	}
	if maxFiles <= 0 {
		maxFiles = 20
	}
	return &CrashHandler{dir: dir, version: version, maxFiles: maxFiles}
}

// SetBinding records the active binding so reports show what was being monitored.
func (h *CrashHandler) SetBinding(b string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.binding = b
}

// Report writes a crash report for a recovered panic value.
func (h *CrashHandler) Report(where string, v any, stack []byte) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	report := CrashReport{
		Timestamp:  time.Now().UTC(),
		Version:    h.version,
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
		PanicValue: fmt.Sprint(v),
		StackTrace: string(stack),
		Where:      where,
		Binding:    h.binding,
	}

	if err := os.MkdirAll(h.dir, 0750); err != nil {
		return "", fmt.Errorf("create crash directory: %w", err)
	}
	h.seq++
	name := fmt.Sprintf("crash-%s-%03d.json", report.Timestamp.Format("20060102-150405"), h.seq)
	path := filepath.Join(h.dir, name)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal crash report: %w", err)
	}
	if err := os.WriteFile(path, data, 0640); err != nil {
		return "", fmt.Errorf("write crash report: %w", err)
	}
	h.prune()
	return path, nil
}

// Recover is deferred at the top of a goroutine. It records the panic and
// re-panics so the process still dies.
func (h *CrashHandler) Recover(where string) {
	if r := recover(); r != nil {
		if path, err := h.Report(where, r, debug.Stack()); err == nil {
			fmt.Fprintf(os.Stderr, "hotkeyd: crash report written to %s\n", path)
		}
		panic(r)
	}
}

// Reports returns every stored report, oldest first.
func (h *CrashHandler) Reports() ([]CrashReport, error) {
	files, err := h.files()
	if err != nil {
		return nil, err
	}
	reports := make([]CrashReport, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		var report CrashReport
		if err := json.Unmarshal(data, &report); err != nil {
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (h *CrashHandler) files() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(h.dir, "crash-*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (h *CrashHandler) prune() {
	files, err := h.files()
	if err != nil || len(files) <= h.maxFiles {
		return
	}
	for _, f := range files[:len(files)-h.maxFiles] {
		os.Remove(f)
	}
}
