// Package render prints board snapshots for the CLI.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lherron/boardq/internal/adapter"
	"github.com/lherron/boardq/internal/board"
	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/id"
)

// Format represents an output format
type Format string

const (
	FormatTable   Format = "table"
	FormatOutline Format = "outline"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatTSV     Format = "tsv"
)

// ParseFormat validates an output format name; empty means table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatOutline, FormatJSON, FormatYAML, FormatTSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// Options for rendering
type Options struct {
	Format    Format
	Porcelain bool   // full ids, no header decoration
	Query     string // only items matching this name or phone fragment
}

// Renderer handles output rendering
type Renderer struct {
	writer io.Writer
	opts   Options
}

// NewRenderer creates a new renderer
func NewRenderer(writer io.Writer, opts Options) *Renderer {
	if opts.Format == "" {
		opts.Format = FormatTable
	}
	return &Renderer{
		writer: writer,
		opts:   opts,
	}
}

// BucketView is the structured form of one column.
type BucketView struct {
	ID       string     `json:"id" yaml:"id"`
	Label    string     `json:"label" yaml:"label"`
	Color    string     `json:"color,omitempty" yaml:"color,omitempty"`
	Position int        `json:"position" yaml:"position"`
	Items    []ItemView `json:"items" yaml:"items"`
}

// ItemView is the structured form of one card.
type ItemView struct {
	ID          string `json:"id" yaml:"id"`
	Order       int    `json:"order" yaml:"order"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Phone       string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Views returns the board in bucket order, filtered by query.
func Views(s *board.Snapshot, query string) []BucketView {
	buckets := s.Buckets()
	views := make([]BucketView, 0, len(buckets))
	for _, b := range buckets {
		v := BucketView{ID: b.ID, Label: adapter.Label(b), Position: b.Position, Items: []ItemView{}}
		if col, err := adapter.FromBucket(b); err == nil {
			v.Color = col.Color
		}
		for _, it := range s.ItemsInBucket(b.ID) {
			rec := clientOf(it)
			if query != "" && !rec.Matches(query) {
				continue
			}
			v.Items = append(v.Items, ItemView{
				ID:          it.ID,
				Order:       it.Order,
				Name:        rec.Name,
				Phone:       rec.Phone,
				Description: rec.Description,
			})
		}
		views = append(views, v)
	}
	return views
}

// clientOf decodes an item's payload, falling back to placement only for
// items that carry no client record.
func clientOf(it domain.Item) adapter.ClientRecord {
	rec, err := adapter.FromItem(it)
	if err != nil {
		return adapter.ClientRecord{ID: it.ID, ColumnID: it.BucketID, Order: it.Order}
	}
	return rec
}

// Board renders a snapshot in the configured format.
func (r *Renderer) Board(s *board.Snapshot) error {
	views := Views(s, r.opts.Query)
	switch r.opts.Format {
	case FormatJSON:
		return r.RenderJSON(views)
	case FormatYAML:
		return r.RenderYAML(views)
	case FormatOutline:
		_, err := io.WriteString(r.writer, Outline(views, r.opts.Porcelain))
		return err
	case FormatTSV:
		return r.RenderTSV(boardHeaders, r.rows(views))
	default:
		return r.RenderTable(boardHeaders, r.rows(views))
	}
}

var boardHeaders = []string{"BUCKET", "POS", "ID", "NAME", "PHONE"}

func (r *Renderer) rows(views []BucketView) [][]string {
	var rows [][]string
	for _, b := range views {
		for _, it := range b.Items {
			itemID := it.ID
			if !r.opts.Porcelain {
				itemID = id.Short(itemID)
			}
			rows = append(rows, []string{b.Label, strconv.Itoa(it.Order), itemID, it.Name, it.Phone})
		}
	}
	return rows
}

// Outline renders one line per bucket followed by its items, indented.
// It is stable for a given board, so two outlines can be diffed.
func Outline(views []BucketView, fullIDs bool) string {
	var sb strings.Builder
	for _, b := range views {
		fmt.Fprintf(&sb, "%s [%s] (%d)\n", b.Label, b.ID, len(b.Items))
		for _, it := range b.Items {
			itemID := it.ID
			if !fullIDs {
				itemID = id.Short(itemID)
			}
			line := fmt.Sprintf("  %d. %s", it.Order, itemID)
			if it.Name != "" {
				line += "  " + it.Name
			}
			sb.WriteString(line + "\n")
		}
	}
	return sb.String()
}

// RenderJSON renders data as JSON
func (r *Renderer) RenderJSON(data interface{}) error {
	encoder := json.NewEncoder(r.writer)
	if !r.opts.Porcelain {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// RenderYAML renders data as YAML
func (r *Renderer) RenderYAML(data interface{}) error {
	encoder := yaml.NewEncoder(r.writer)
	defer encoder.Close()
	return encoder.Encode(data)
}

// RenderTSV renders data as tab-separated values
func (r *Renderer) RenderTSV(headers []string, rows [][]string) error {
	if _, err := fmt.Fprintln(r.writer, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(r.writer, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return nil
}

// RenderTable renders data as a formatted table
func (r *Renderer) RenderTable(headers []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	if r.opts.Porcelain {
		fmt.Fprintln(r.writer, strings.Join(headers, "\t"))
		for _, row := range rows {
			fmt.Fprintln(r.writer, strings.Join(row, "\t"))
		}
		return nil
	}

	r.renderTableRow(headers, widths)
	r.renderTableSeparator(widths)
	for _, row := range rows {
		r.renderTableRow(row, widths)
	}
	return nil
}

func (r *Renderer) renderTableRow(cells []string, widths []int) {
	for i, cell := range cells {
		if i >= len(widths) {
			break
		}
		if i == len(cells)-1 {
			fmt.Fprint(r.writer, cell)
			break
		}
		fmt.Fprintf(r.writer, "%-*s  ", widths[i], cell)
	}
	fmt.Fprintln(r.writer)
}

func (r *Renderer) renderTableSeparator(widths []int) {
	for i, width := range widths {
		fmt.Fprint(r.writer, strings.Repeat("-", width))
		if i < len(widths)-1 {
			fmt.Fprint(r.writer, "  ")
		}
	}
	fmt.Fprintln(r.writer)
}
