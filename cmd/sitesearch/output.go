package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// printer renders command output as a table on a terminal and JSON otherwise
type printer struct {
	out  io.Writer
	json bool
}

func (o *cliOptions) printer(cmd *cobra.Command) *printer {
	out := cmd.OutOrStdout()
	asJSON := o.jsonOutput
	if f, ok := out.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		asJSON = true
	}
	return &printer{out: out, json: asJSON}
}

func (p *printer) JSON(v interface{}) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) Table(header []string, rows [][]string) {
	table := tablewriter.NewWriter(p.out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(rows)
	table.Render()
}

// Summary prints a highlighted one-line footer
func (p *printer) Summary(format string, args ...interface{}) {
	faint := color.New(color.Faint).SprintFunc()
	fmt.Fprintln(p.out, faint(fmt.Sprintf(format, args...)))
}

func formatScore(score float64) string {
	s := strconv.FormatFloat(score, 'f', 2, 64)
	switch {
	case score >= 0.8:
		return color.GreenString(s)
	case score >= 0.5:
		return color.YellowString(s)
	default:
		return s
	}
}

func bold(s string) string {
	return color.New(color.Bold).Sprint(s)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
