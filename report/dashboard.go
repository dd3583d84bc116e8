package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const metadataOpen = `<script type="application/json" id="run-metadata">`

// Entry is one run listed on the dashboard.
type Entry struct {
	Name         string    `json:"name"`
	Timestamp    string    `json:"timestamp"`
	Success      bool      `json:"success"`
	FrameCount   int       `json:"frame_count"`
	Duration     string    `json:"duration"`
	ReportPath   string    `json:"report_path"`
	RelativePath string    `json:"relative_path"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// GenerateDashboard writes baseDir/index.html listing every run report found
// below baseDir.
func GenerateDashboard(baseDir string) error {
	runs, err := ScanRuns(baseDir)
	if err != nil {
		return fmt.Errorf("scan runs: %w", err)
	}

	path := filepath.Join(baseDir, "index.html")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dashboard: %w", err)
	}

	data := struct {
		Runs        []Entry
		GeneratedAt time.Time
	}{runs, time.Now()}

	if err := templates.ExecuteTemplate(file, "dashboard.html", data); err != nil {
		_ = file.Close()
		return fmt.Errorf("execute dashboard template: %w", err)
	}
	if err := file.Close(); err != nil {
		return err
	}

	log.Info().Str("path", path).Int("runs", len(runs)).Msg("Dashboard generated")
	return nil
}

// ScanRuns finds <name>/<timestamp>/index.html reports below baseDir, newest
// first. Reports without readable metadata are listed by directory name.
func ScanRuns(baseDir string) ([]Entry, error) {
	var runs []Entry
	root := filepath.Join(baseDir, "index.html")

	err := filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != "index.html" || path == root {
			return nil
		}

		dir := filepath.Dir(path)
		stamp := filepath.Base(dir)
		recorded, err := time.ParseInLocation(TimestampLayout, stamp, time.Local)
		if err != nil {
			return nil
		}

		entry := Entry{
			Name:         filepath.Base(filepath.Dir(dir)),
			Timestamp:    stamp,
			ReportPath:   path,
			RelativePath: relativePath(baseDir, path),
			RecordedAt:   recorded,
		}

		meta, err := readMetadata(path)
		switch {
		case err == nil:
			entry.Name = meta.Name
			entry.Success = meta.Success
			entry.FrameCount = meta.FrameCount
			entry.Duration = meta.Duration
		default:
			log.Debug().Err(err).Str("path", path).Msg("Report without metadata")
		}

		runs = append(runs, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].RecordedAt.After(runs[j].RecordedAt)
	})
	return runs, nil
}

func readMetadata(path string) (*Metadata, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return extractMetadata(string(content))
}

var errNoMetadata = errors.New("no run metadata")

func extractMetadata(html string) (*Metadata, error) {
	start := strings.Index(html, metadataOpen)
	if start == -1 {
		return nil, errNoMetadata
	}
	start += len(metadataOpen)

	end := strings.Index(html[start:], "</script>")
	if end == -1 {
		return nil, fmt.Errorf("unterminated run metadata")
	}

	var meta Metadata
	if err := json.Unmarshal([]byte(strings.TrimSpace(html[start:start+end])), &meta); err != nil {
		return nil, fmt.Errorf("parse run metadata: %w", err)
	}
	if meta.ReportType != reportType {
		return nil, fmt.Errorf("unexpected report type %q", meta.ReportType)
	}
	return &meta, nil
}

func relativePath(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel)
}
