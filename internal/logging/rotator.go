package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// FileRotator is a size-bounded log file. When the active file would exceed
// MaxSize it is shifted to <path>.1 (or <path>.1.gz), older backups move up
// one slot and the oldest beyond MaxBackups is removed.
type FileRotator struct {
	config *Config
	mu     sync.Mutex
	file   *os.File
	size   int64
}

// NewFileRotator opens the log file, creating its directory if needed.
func NewFileRotator(cfg *Config) (*FileRotator, error) {
	r := &FileRotator{config: cfg}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if err := r.openFile(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRotator) openFile() error {
	file, err := os.OpenFile(r.config.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	r.file = file
	r.size = info.Size()
	return nil
}

// Write implements io.Writer.
func (r *FileRotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err := r.openFile(); err != nil {
			return 0, err
		}
	}

	maxBytes := r.config.MaxSize * 1024 * 1024
	if maxBytes > 0 && r.size > 0 && r.size+int64(len(p)) > maxBytes {
		if err := r.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log: %w", err)
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *FileRotator) backupPath(n int) string {
	p := fmt.Sprintf("%s.%d", r.config.FilePath, n)
	if r.config.Compress {
		p += ".gz"
	}
	return p
}

func (r *FileRotator) rotate() error {
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("close current log: %w", err)
	}
	r.file = nil

	keep := r.config.MaxBackups
	if keep < 1 {
		keep = 1
	}
	_ = os.Remove(r.backupPath(keep))
	for i := keep - 1; i >= 1; i-- {
		if err := os.Rename(r.backupPath(i), r.backupPath(i+1)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("shift backup %d: %w", i, err)
		}
	}

	if r.config.Compress {
		if err := compressFile(r.config.FilePath, r.backupPath(1)); err != nil {
			return err
		}
		if err := os.Remove(r.config.FilePath); err != nil {
			return fmt.Errorf("remove rotated log: %w", err)
		}
	} else if err := os.Rename(r.config.FilePath, r.backupPath(1)); err != nil {
		return fmt.Errorf("rename log file: %w", err)
	}

	return r.openFile()
}

func compressFile(src, dst string) error {
	input, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open rotated log: %w", err)
	}
	defer input.Close()

	output, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create compressed log: %w", err)
	}

	gz := gzip.NewWriter(output)
	gz.Name = filepath.Base(src)
	if _, err := io.Copy(gz, input); err != nil {
		gz.Close()
		output.Close()
		os.Remove(dst)
		return fmt.Errorf("compress log: %w", err)
	}
	if err := gz.Close(); err != nil {
		output.Close()
		os.Remove(dst)
		return fmt.Errorf("compress log: %w", err)
	}
	return output.Close()
}

// Close closes the rotator and its underlying file.
func (r *FileRotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}

// Sync flushes any buffered data to the file.
func (r *FileRotator) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		return r.file.Sync()
	}
	return nil
}

// LogFiles returns the active log file followed by existing backups, newest first.
func (r *FileRotator) LogFiles() []string {
	files := []string{r.config.FilePath}
	for i := 1; i <= r.config.MaxBackups; i++ {
		if _, err := os.Stat(r.backupPath(i)); err == nil {
			files = append(files, r.backupPath(i))
		}
	}
	return files
}
