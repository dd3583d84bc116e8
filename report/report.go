// Package report writes HTML reports for recorded cue sheet runs: every
// captured frame with its terminal view, the transition log, and a dashboard
// indexing all runs under a directory.
package report

import (
	"embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teranos/cuesheet"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"ms": func(d time.Duration) string { return fmt.Sprintf("%dms", d.Milliseconds()) },
}).ParseFS(templateFS, "templates/*.html"))

// TimestampLayout names run directories.
const TimestampLayout = "20060102_150405"

const reportType = "cue-sheet-run"

// Frame is one captured view.
type Frame struct {
	Label    string        `json:"label"`
	Stage    string        `json:"stage"`
	At       time.Duration `json:"at"` // offset from the start of the run
	Filename string        `json:"filename,omitempty"`
	View     template.HTML `json:"-"`
	DataURL  template.URL  `json:"-"`
}

// TransitionRow is one entry of the transition log.
type TransitionRow struct {
	Generation uint64        `json:"generation"`
	From       string        `json:"from"`
	To         string        `json:"to"`
	At         time.Duration `json:"at"`
}

// Row converts a transition observed during a run that started at start.
func Row(start time.Time, tr cuesheet.Transition) TransitionRow {
	return TransitionRow{
		Generation: tr.Generation,
		From:       tr.From.String(),
		To:         tr.To.String(),
		At:         tr.At.Sub(start),
	}
}

// RunReport is everything recorded about one run.
type RunReport struct {
	Name        string
	Timestamp   string
	Duration    time.Duration
	Success     bool
	Sheet       cuesheet.CueSheet
	Frames      []Frame
	Transitions []TransitionRow
	Problems    []string
	Metadata    map[string]string
}

// Metadata is the JSON block embedded in every report for the dashboard.
type Metadata struct {
	Name       string `json:"name"`
	Duration   string `json:"duration"`
	FrameCount int    `json:"frameCount"`
	Timestamp  string `json:"timestamp"`
	Success    bool   `json:"success"`
	ReportType string `json:"reportType"`
}

func (r RunReport) metadata() Metadata {
	return Metadata{
		Name:       r.Name,
		Duration:   r.Duration.String(),
		FrameCount: len(r.Frames),
		Timestamp:  r.Timestamp,
		Success:    r.Success,
		ReportType: reportType,
	}
}

// RunDir is the directory a run recorded at t is written to.
func RunDir(base, name string, t time.Time) string {
	return filepath.Join(base, name, t.Format(TimestampLayout))
}

// Generator writes reports into one directory.
type Generator struct {
	outputDir string
}

// NewGenerator creates a generator writing to outputDir.
func NewGenerator(outputDir string) *Generator {
	return &Generator{outputDir: outputDir}
}

// Generate writes index.html for r.
func (g *Generator) Generate(r RunReport) error {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	meta, err := json.Marshal(r.metadata())
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	file, err := os.Create(filepath.Join(g.outputDir, "index.html"))
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}

	data := struct {
		RunReport
		MetadataJSON template.JS
	}{r, template.JS(meta)}

	if err := templates.ExecuteTemplate(file, "run.html", data); err != nil {
		_ = file.Close()
		return fmt.Errorf("execute report template: %w", err)
	}
	return file.Close()
}

// FrameDataURL reads an image and returns it as a base64 data URL.
func FrameDataURL(path string) (template.URL, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read frame: %w", err)
	}

	mime := "image/png"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		mime = "image/jpeg"
	case ".gif":
		mime = "image/gif"
	case ".webp":
		mime = "image/webp"
	}

	return template.URL("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)), nil
}
