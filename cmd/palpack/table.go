package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/flaneur2020/palpack/palpack"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// renderIndex lists a container's entries with their payload offsets.
func renderIndex(idx *palpack.Index) string {
	meta := idx.Metadata

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d tracks, %s, %s stored / %s source\n",
		displayName(meta.Name),
		len(meta.Entries),
		meta.Compression,
		humanize.IBytes(meta.StoredSize()),
		humanize.IBytes(meta.SourceSize()))

	if len(meta.Entries) == 0 {
		return strings.TrimRight(b.String(), "\n")
	}

	headers := []string{"#", "Name", "Playlists", "Stored", "Source", "Offset"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight}
	rows := make([][]string, 0, len(meta.Entries))
	for i, e := range meta.Entries {
		rows = append(rows, []string{
			strconv.Itoa(i),
			e.Name,
			strings.Join(e.Playlists, ", "),
			humanize.IBytes(e.Size),
			humanize.IBytes(e.SourceSize),
			strconv.FormatInt(idx.PayloadOffset(i), 10),
		})
	}
	b.WriteString(renderTable(headers, rows, aligns))
	return b.String()
}

func summarize(verb string, meta *palpack.Metadata, elapsed time.Duration) string {
	return fmt.Sprintf("%s %s: %d tracks (%s stored, %s source) in %s",
		verb,
		displayName(meta.Name),
		len(meta.Entries),
		humanize.IBytes(meta.StoredSize()),
		humanize.IBytes(meta.SourceSize()),
		elapsed.Round(time.Millisecond))
}

func displayName(name string) string {
	if name == "" {
		return "(unnamed library)"
	}
	return strconv.Quote(name)
}
