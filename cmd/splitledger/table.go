package main

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"splitledger/internal/repair"
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

func stdoutIsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

var splitTableHeaders = []string{"ID", "SONG", "USER", "RATE", "REV", "STATUS", "OWNER"}

var splitTableAligns = []columnAlignment{
	alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft,
}

func splitTableRows(refs []repair.SplitRef) [][]string {
	rows := make([][]string, len(refs))
	for i, ref := range refs {
		user := "-"
		if ref.UserID != nil {
			user = formatInt64(*ref.UserID)
		}
		owner := ""
		if ref.IsOwner {
			owner = "owner"
		}
		rows[i] = []string{
			formatInt64(ref.ID),
			formatInt64(ref.SongID),
			user,
			ref.Rate,
			formatInt(ref.Revision),
			ref.Status,
			owner,
		}
	}
	return rows
}
