// package formatter exports the run history to various formats (text, CSV, Markdown, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss/table"

	"github.com/desertthunder/trainx/internal/models"
	"github.com/desertthunder/trainx/internal/shared"
)

// Format names an export format.
type Format string

const (
	Text     Format = "text"
	CSV      Format = "csv"
	Markdown Format = "md"
	JSON     Format = "json"
)

// Formats lists every supported [Format].
func Formats() []Format {
	return []Format{Text, CSV, Markdown, JSON}
}

// ParseFormat accepts a format name or a common alias ("txt", "markdown").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "csv":
		return CSV, nil
	case "md", "markdown":
		return Markdown, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// Ext returns the file extension for the format.
func (f Format) Ext() string {
	if f == Text {
		return ".txt"
	}
	return "." + string(f)
}

// LinkFunc builds the tracking link for a run ID. A nil LinkFunc omits links.
type LinkFunc func(runID string) string

// RunRecord is the exported view of a [models.Run].
type RunRecord struct {
	Sequence   int        `json:"sequence"`
	RunID      string     `json:"run_id"`
	Dataset    string     `json:"dataset"`
	ModelType  string     `json:"model_type"`
	Status     string     `json:"status"`
	Progress   int        `json:"progress"`
	Accuracy   *float64   `json:"accuracy,omitempty"`
	Message    string     `json:"message,omitempty"`
	BaseURL    string     `json:"base_url,omitempty"`
	Link       string     `json:"link,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Records converts runs to export records.
func Records(runs []*models.Run, link LinkFunc) []RunRecord {
	records := make([]RunRecord, 0, len(runs))
	for _, run := range runs {
		rec := RunRecord{
			Sequence:   run.Sequence(),
			RunID:      run.RunID(),
			Dataset:    run.Dataset(),
			ModelType:  string(run.ModelType()),
			Status:     string(run.Status()),
			Progress:   run.Progress(),
			Accuracy:   run.Accuracy(),
			Message:    run.Message(),
			BaseURL:    run.BaseURL(),
			CreatedAt:  run.CreatedAt(),
			FinishedAt: run.FinishedAt(),
		}
		if link != nil {
			rec.Link = link(run.RunID())
		}
		records = append(records, rec)
	}
	return records
}

func (r RunRecord) accuracy() string {
	if r.Accuracy == nil {
		return ""
	}
	return models.FormatAccuracy(*r.Accuracy)
}

// Duration is the wall time from start to finish, empty while running.
func (r RunRecord) Duration() string {
	if r.FinishedAt == nil {
		return ""
	}
	return r.FinishedAt.Sub(r.CreatedAt).Round(time.Second).String()
}

// ExportToCSV converts runs to CSV with columns: Run ID, Dataset, Model, Status, Progress, Accuracy, Message, Created, Duration, Link
func ExportToCSV(runs []*models.Run, link LinkFunc) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Run ID", "Dataset", "Model", "Status", "Progress", "Accuracy", "Message", "Created", "Duration", "Link"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, rec := range Records(runs, link) {
		record := []string{
			rec.RunID,
			rec.Dataset,
			rec.ModelType,
			rec.Status,
			strconv.Itoa(rec.Progress),
			rec.accuracy(),
			rec.Message,
			rec.CreatedAt.Format(time.RFC3339),
			rec.Duration(),
			rec.Link,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts runs to a Markdown table. Run IDs link to the tracking UI when link is set.
func ExportToMarkdown(runs []*models.Run, link LinkFunc) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Training runs\n\n")
	fmt.Fprintf(&buf, "**Runs**: %d\n\n", len(runs))

	if len(runs) == 0 {
		buf.WriteString("_No runs recorded._\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Run | Dataset | Model | Status | Progress | Accuracy | Message |\n")
	buf.WriteString("|---|-----|---------|-------|--------|----------|----------|---------|\n")
	for _, rec := range Records(runs, link) {
		runCell := rec.RunID
		if rec.Link != "" {
			runCell = fmt.Sprintf("[%s](%s)", rec.RunID, rec.Link)
		}
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %s | %d%% | %s | %s |\n",
			rec.Sequence,
			runCell,
			escapeCell(rec.Dataset),
			rec.ModelType,
			rec.Status,
			rec.Progress,
			rec.accuracy(),
			escapeCell(rec.Message),
		)
	}

	return buf.Bytes(), nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// ExportToText renders runs as a bordered table.
func ExportToText(runs []*models.Run) ([]byte, error) {
	if len(runs) == 0 {
		return []byte("No runs recorded.\n"), nil
	}

	t := table.New().Headers("#", "RUN", "DATASET", "MODEL", "STATUS", "PROGRESS", "ACCURACY", "DURATION")
	for _, rec := range Records(runs, nil) {
		acc := rec.accuracy()
		if acc == "" {
			acc = "-"
		}
		t.Row(
			strconv.Itoa(rec.Sequence),
			rec.RunID,
			rec.Dataset,
			rec.ModelType,
			rec.Status,
			fmt.Sprintf("%d%%", rec.Progress),
			acc,
			rec.Duration(),
		)
	}

	return []byte(t.Render() + "\n"), nil
}

// ExportToJSON converts runs to a JSON array.
func ExportToJSON(runs []*models.Run, link LinkFunc, pretty bool) ([]byte, error) {
	records := Records(runs, link)
	if pretty {
		return json.MarshalIndent(records, "", "  ")
	}
	return json.Marshal(records)
}

// Export renders runs in the given format.
func Export(runs []*models.Run, format Format, link LinkFunc) ([]byte, error) {
	switch format {
	case Text:
		return ExportToText(runs)
	case CSV:
		return ExportToCSV(runs, link)
	case Markdown:
		return ExportToMarkdown(runs, link)
	case JSON:
		return ExportToJSON(runs, link, true)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteExport writes runs to path in the given format.
//
// Defaults to trainx_runs{ext} as the filename.
func WriteExport(runs []*models.Run, format Format, path string, link LinkFunc) (string, error) {
	if path == "" {
		path = "trainx_runs" + format.Ext()
	}

	data, err := Export(runs, format, link)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}
