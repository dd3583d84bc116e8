package report

import (
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teranos/cuesheet"
	"github.com/teranos/cuesheet/film"
)

func TestViewHTML(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain text",
			input:    "Hello world",
			expected: "Hello world",
		},
		{
			name:     "colour and reset",
			input:    "\x1b[38;5;99mLive\x1b[0m ok",
			expected: `<span style="color: #875fff;">Live</span> ok`,
		},
		{
			name:     "bold colour",
			input:    "\x1b[1;38;5;76m✓ done\x1b[0m",
			expected: `<span style="color: #5fd700; font-weight: bold;">✓ done</span>`,
		},
		{
			name:     "italic faint",
			input:    "\x1b[2;3mnote\x1b[0m",
			expected: `<span style="opacity: 0.6; font-style: italic;">note</span>`,
		},
		{
			name:     "newlines kept",
			input:    "Line 1\nLine 2",
			expected: "Line 1\nLine 2",
		},
		{
			name:     "cursor movement removed",
			input:    "\x1b[2K\x1b[1Aprompt",
			expected: "prompt",
		},
		{
			name:     "html escaped",
			input:    `<script>alert("xss")</script>`,
			expected: `&lt;script&gt;alert(&#34;xss&#34;)&lt;/script&gt;`,
		},
		{
			name:     "escaping inside colour",
			input:    "\x1b[31m<error>&msg\x1b[0m",
			expected: `<span style="color: #cd3131;">&lt;error&gt;&amp;msg</span>`,
		},
		{
			name:     "wide characters intact",
			input:    "\x1b[32m日本\x1b[0m 224×224",
			expected: `<span style="color: #0dbc79;">日本</span> 224×224`,
		},
		{
			name:     "blank view",
			input:    "\x1b[0m  \n ",
			expected: emptyView,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, template.HTML(tc.expected), ViewHTML(tc.input))
		})
	}
}

func TestFrameDataURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.png")
	require.NoError(t, film.NewRenderer(film.DefaultConfig()).WriteFrame(path, "Input"))

	url, err := FrameDataURL(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(url), "data:image/png;base64,iVBORw0KGgo"))

	jpeg := filepath.Join(dir, "frame.JPG")
	require.NoError(t, os.WriteFile(jpeg, []byte{0xff, 0xd8}, 0o644))
	url, err = FrameDataURL(jpeg)
	require.NoError(t, err)
	assert.Equal(t, template.URL("data:image/jpeg;base64,/9g="), url)

	_, err = FrameDataURL(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestRow(t *testing.T) {
	start := time.Date(2024, 11, 9, 15, 30, 45, 0, time.UTC)
	sheet := cuesheet.Evenly(200*time.Millisecond, "A", "B")

	row := Row(start, cuesheet.Transition{
		Generation: 3,
		From:       sheet.Stage(0),
		To:         sheet.Stage(1),
		At:         start.Add(200 * time.Millisecond),
	})

	assert.Equal(t, TransitionRow{Generation: 3, From: "cue#0(A)", To: "cue#1(B)", At: 200 * time.Millisecond}, row)
}

func sampleReport() RunReport {
	sheet := cuesheet.InferenceCueSheet()
	return RunReport{
		Name:      "inference",
		Timestamp: "20241109_153045",
		Duration:  4800 * time.Millisecond,
		Success:   true,
		Sheet:     sheet,
		Frames: []Frame{
			{Label: "001-idle", Stage: "idle", View: ViewHTML("Press enter to run inference")},
			{Label: "002-input", Stage: "cue#0(Input)", View: ViewHTML("\x1b[38;5;99mInput\x1b[0m <raw>"),
				DataURL: template.URL("data:image/png;base64,AAAA")},
		},
		Transitions: []TransitionRow{
			{Generation: 1, From: "idle", To: "cue#0(Input)"},
		},
		Metadata: map[string]string{"clock": "manual"},
	}
}

func TestGenerator_Generate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewGenerator(dir).Generate(sampleReport()))

	content, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	html := string(content)

	assert.Contains(t, html, "<title>inference - cuesheet run</title>")
	assert.Contains(t, html, ">PASSED<")
	assert.Contains(t, html, "2 captured")
	assert.Contains(t, html, `<span style="color: #875fff;">Input</span> &lt;raw&gt;`)
	assert.Contains(t, html, `src="data:image/png;base64,AAAA"`)
	assert.Contains(t, html, "<td>Conv1</td><td>600ms</td>")
	assert.Contains(t, html, "<td>4800ms</td>")
	assert.Contains(t, html, "cue#0(Input)")
	assert.Contains(t, html, "manual")

	meta, err := extractMetadata(html)
	require.NoError(t, err)
	assert.Equal(t, Metadata{
		Name:       "inference",
		Duration:   "4.8s",
		FrameCount: 2,
		Timestamp:  "20241109_153045",
		Success:    true,
		ReportType: reportType,
	}, *meta)
}

func TestGenerator_Failure(t *testing.T) {
	dir := t.TempDir()
	r := sampleReport()
	r.Success = false
	r.Problems = []string{"visual regression in 002-input: 12.00% difference"}
	r.Frames = nil

	require.NoError(t, NewGenerator(dir).Generate(r))
	content, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)

	assert.Contains(t, string(content), ">FAILED<")
	assert.Contains(t, string(content), "visual regression in 002-input")
	assert.Contains(t, string(content), "No frames captured")
}

func TestExtractMetadata(t *testing.T) {
	t.Run("missing block", func(t *testing.T) {
		_, err := extractMetadata("<html></html>")
		assert.ErrorIs(t, err, errNoMetadata)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := extractMetadata(metadataOpen + "{nope</script>")
		assert.Error(t, err)
	})

	t.Run("foreign report", func(t *testing.T) {
		_, err := extractMetadata(metadataOpen + `{"name":"x","reportType":"other"}</script>`)
		assert.Error(t, err)
	})
}

func TestGenerateDashboard(t *testing.T) {
	base := t.TempDir()

	older := sampleReport()
	older.Name = "warmup"
	older.Success = false
	require.NoError(t, NewGenerator(RunDir(base, "warmup", time.Date(2024, 11, 8, 9, 0, 0, 0, time.Local))).Generate(older))
	require.NoError(t, NewGenerator(RunDir(base, "inference", time.Date(2024, 11, 9, 15, 30, 45, 0, time.Local))).Generate(sampleReport()))

	legacy := filepath.Join(base, "legacy", "20240101_000000")
	require.NoError(t, os.MkdirAll(legacy, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(legacy, "index.html"), []byte("<html></html>"), 0o644))

	stray := filepath.Join(base, "notes")
	require.NoError(t, os.MkdirAll(stray, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stray, "index.html"), []byte("<html></html>"), 0o644))

	runs, err := ScanRuns(base)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	t.Logf("[TRACE] runs: %+v", runs)

	assert.Equal(t, "inference", runs[0].Name)
	assert.True(t, runs[0].Success)
	assert.Equal(t, 2, runs[0].FrameCount)
	assert.Equal(t, "inference/20241109_153045/index.html", runs[0].RelativePath)

	assert.Equal(t, "warmup", runs[1].Name)
	assert.False(t, runs[1].Success)

	assert.Equal(t, "legacy", runs[2].Name)
	assert.Zero(t, runs[2].FrameCount)

	require.NoError(t, GenerateDashboard(base))
	content, err := os.ReadFile(filepath.Join(base, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(content), `href="inference/20241109_153045/index.html"`)
	assert.Contains(t, string(content), "3 runs")

	runs, err = ScanRuns(base)
	require.NoError(t, err)
	assert.Len(t, runs, 3, "the dashboard itself is not a run")
}
