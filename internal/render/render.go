// Package render turns listing and sample views into UI payloads.
//
// Two variants implement the same Renderer capability: Grid emits JSON rows
// for a client-side grid widget, Table emits an escaped HTML table as the
// universal fallback. The variant is chosen once at construction, never by
// runtime feature detection.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"github.com/seqops/seqbrowse/internal/catalog"
	"github.com/seqops/seqbrowse/internal/errs"
	"github.com/seqops/seqbrowse/internal/samples"
)

// Renderer produces a view payload from browsing data.
type Renderer interface {
	// RenderObjects renders a catalog listing.
	RenderObjects(records []catalog.Record) (string, error)

	// RenderSamples renders the derived sample view.
	RenderSamples(view []samples.SampleRecord) (string, error)
}

// --- Grid variant ---

// Grid renders rows as a JSON payload for a grid widget.
type Grid struct{}

// NewGrid returns the grid-widget renderer.
func NewGrid() *Grid { return &Grid{} }

type gridPayload struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

func (g *Grid) RenderObjects(records []catalog.Record) (string, error) {
	p := gridPayload{Columns: []string{"key", "size", "last_modified", "storage_class"}}
	for _, r := range records {
		p.Rows = append(p.Rows, []any{r.Key, HumanSize(r.Size), Timestamp(r.LastModified), r.StorageClass})
	}
	return marshal(p)
}

func (g *Grid) RenderSamples(view []samples.SampleRecord) (string, error) {
	p := gridPayload{Columns: []string{"sample_id", "complete", "quant", "gene_quant", "log", "meta", "files", "latest"}}
	for _, s := range view {
		p.Rows = append(p.Rows, []any{
			s.SampleID, s.Complete, s.HasQuant, s.HasGeneQuant, s.HasLog, s.HasMeta,
			s.FileCount, Timestamp(s.LatestModified),
		})
	}
	return marshal(p)
}

func marshal(p gridPayload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindInvalidInput, "cannot marshal grid payload", err)
	}
	return string(data), nil
}

// --- Table variant ---

var objectsTmpl = template.Must(template.New("objects").Parse(`<table>
<thead><tr><th>Key</th><th>Size</th><th>Last modified</th><th>Storage class</th></tr></thead>
<tbody>
{{- range .}}
<tr><td>{{.Key}}</td><td>{{.Size}}</td><td>{{.LastModified}}</td><td>{{.StorageClass}}</td></tr>
{{- end}}
</tbody>
</table>`))

var samplesTmpl = template.Must(template.New("samples").Parse(`<table>
<thead><tr><th>Sample</th><th>Complete</th><th>Quant</th><th>Gene quant</th><th>Log</th><th>Meta</th><th>Files</th><th>Latest</th></tr></thead>
<tbody>
{{- range .}}
<tr><td>{{.SampleID}}</td><td>{{.Complete}}</td><td>{{.HasQuant}}</td><td>{{.HasGeneQuant}}</td><td>{{.HasLog}}</td><td>{{.HasMeta}}</td><td>{{.FileCount}}</td><td>{{.Latest}}</td></tr>
{{- end}}
</tbody>
</table>`))

// Table renders rows as an escaped HTML table; it works everywhere the grid
// widget does not.
type Table struct{}

// NewTable returns the HTML-table renderer.
func NewTable() *Table { return &Table{} }

type objectRow struct {
	Key          string
	Size         string
	LastModified string
	StorageClass string
}

type sampleRow struct {
	SampleID     string
	Complete     bool
	HasQuant     bool
	HasGeneQuant bool
	HasLog       bool
	HasMeta      bool
	FileCount    int
	Latest       string
}

func (t *Table) RenderObjects(records []catalog.Record) (string, error) {
	rows := make([]objectRow, len(records))
	for i, r := range records {
		rows[i] = objectRow{
			Key:          r.Key,
			Size:         HumanSize(r.Size),
			LastModified: Timestamp(r.LastModified),
			StorageClass: r.StorageClass,
		}
	}
	return execute(objectsTmpl, rows)
}

func (t *Table) RenderSamples(view []samples.SampleRecord) (string, error) {
	rows := make([]sampleRow, len(view))
	for i, s := range view {
		rows[i] = sampleRow{
			SampleID:     s.SampleID,
			Complete:     s.Complete,
			HasQuant:     s.HasQuant,
			HasGeneQuant: s.HasGeneQuant,
			HasLog:       s.HasLog,
			HasMeta:      s.HasMeta,
			FileCount:    s.FileCount,
			Latest:       Timestamp(s.LatestModified),
		}
	}
	return execute(samplesTmpl, rows)
}

func execute(tmpl *template.Template, rows any) (string, error) {
	buf := &bytes.Buffer{}
	if err := tmpl.Execute(buf, rows); err != nil {
		return "", errs.Wrap(errs.ErrKindInvalidInput, "cannot render table", err)
	}
	return buf.String(), nil
}

// --- display helpers ---

// HumanSize formats a byte count the way the operator reads it. Unknown
// sizes render empty, never as zero.
func HumanSize(n int64) string {
	if n < 0 {
		return ""
	}
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	val := float64(n)
	for _, unit := range []string{"KB", "MB", "GB", "TB", "PB"} {
		val /= 1024
		if val < 1024 || unit == "PB" {
			return fmt.Sprintf("%.2f %s", val, unit)
		}
	}
	return ""
}

// Timestamp renders a UTC timestamp, or empty when unreported.
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}
