package main

import (
	"io"
	"os"
	"strconv"

	"image-review/internal/service"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

func renderReport(report *service.ImportReport) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Metric", "Count"})
	tw.AppendRows([]table.Row{
		{"Scanned", strconv.Itoa(report.Scanned)},
		{"Imported", strconv.Itoa(report.Imported)},
		{"Duplicates", strconv.Itoa(report.Duplicates)},
		{"Failed", strconv.Itoa(report.Failed)},
		{"Titles created", strconv.Itoa(report.TitlesCreated)},
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
