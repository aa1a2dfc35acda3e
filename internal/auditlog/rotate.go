package auditlog

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RotationConfig controls how old audit files are compressed and, optionally,
// deleted. Defaults mirror the in-core boot-time rotation: compress at 2
// days, deletion dormant.
type RotationConfig struct {
	CompressAfterDays int
	DeleteAfterDays   int
	DeleteEnabled     bool
}

// DefaultRotationConfig returns the boot-time rotation defaults: compress
// .jsonl files older than 2 days, deletion left off.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		CompressAfterDays: 2,
		DeleteAfterDays:   30,
		DeleteEnabled:     false,
	}
}

// RotationResult reports what a Rotate call did.
type RotationResult struct {
	Compressed int
	Deleted    int
}

// Rotate gzips .jsonl files in dir older than cfg.CompressAfterDays, and,
// if cfg.DeleteEnabled, removes .gz files older than cfg.DeleteAfterDays.
// A single file's compression failure is logged and skipped rather than
// aborting the sweep — rotation must never block session start.
func Rotate(dir string, cfg RotationConfig, now time.Time) (RotationResult, error) {
	var result RotationResult

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return result, fmt.Errorf("auditlog: listing %s: %w", dir, err)
	}

	today := now.Truncate(24 * time.Hour)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		fpath := filepath.Join(dir, name)

		info, err := entry.Info()
		if err != nil {
			continue
		}
		ageDays := int(today.Sub(info.ModTime().Truncate(24*time.Hour)).Hours() / 24)

		switch {
		case strings.Contains(name, ".jsonl") && !strings.HasSuffix(name, ".gz"):
			if ageDays < cfg.CompressAfterDays {
				continue
			}
			if err := compressFile(fpath); err != nil {
				fmt.Fprintf(os.Stderr, "auditlog: failed to compress %s: %v\n", fpath, err)
				continue
			}
			result.Compressed++

		case strings.HasSuffix(name, ".gz"):
			if !cfg.DeleteEnabled || cfg.DeleteAfterDays <= 0 {
				continue
			}
			if ageDays < cfg.DeleteAfterDays {
				continue
			}
			if err := os.Remove(fpath); err != nil {
				fmt.Fprintf(os.Stderr, "auditlog: failed to delete %s: %v\n", fpath, err)
				continue
			}
			result.Deleted++
		}
	}

	return result, nil
}

func compressFile(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	gzPath := path + ".gz"
	out, err := os.Create(gzPath)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}

	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		out.Close()
		os.Remove(gzPath)
		return fmt.Errorf("writing archive: %w", err)
	}
	if err := gw.Close(); err != nil {
		out.Close()
		os.Remove(gzPath)
		return fmt.Errorf("closing archive writer: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(gzPath)
		return fmt.Errorf("closing archive: %w", err)
	}

	return os.Remove(path)
}
