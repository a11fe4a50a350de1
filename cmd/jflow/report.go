package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/jvmflow/jflow/core/maxs"
)

// methodReport is one row of the maxs output.
type methodReport struct {
	File       string `json:"file"`
	Method     string `json:"method"`
	Descriptor string `json:"descriptor"`
	MaxStack   int    `json:"maxStack"`
	MaxLocals  int    `json:"maxLocals"`
	Declared   bool   `json:"declared"`
	Error      string `json:"error,omitempty"`
}

// newReports pairs results with the listing each method came from. results
// holds the methods of all listings in order.
func newReports(listings []*listing, results []maxs.Result) []methodReport {
	reports := make([]methodReport, 0, len(results))
	i := 0
	for _, l := range listings {
		for range l.methods {
			res := results[i]
			i++
			r := methodReport{
				File:       l.path,
				Method:     res.Method.Name,
				Descriptor: res.Method.Descriptor,
			}
			if res.Err != nil {
				r.Error = res.Err.Error()
			} else {
				r.MaxStack = res.Report.Maxs.Stack
				r.MaxLocals = res.Report.Maxs.Locals
				r.Declared = res.Report.Declared
			}
			reports = append(reports, r)
		}
	}
	return reports
}

func writeReportsJSON(w io.Writer, reports []methodReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

func statusColors(useColor bool) (ok, failed *color.Color) {
	ok, failed = color.New(color.FgGreen), color.New(color.FgRed, color.Bold)
	if useColor {
		ok.EnableColor()
		failed.EnableColor()
	} else {
		ok.DisableColor()
		failed.DisableColor()
	}
	return ok, failed
}

func writeReportsTable(w io.Writer, reports []methodReport, useColor bool) {
	okColor, failColor := statusColors(useColor)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"File", "Method", "Descriptor", "Max Stack", "Max Locals", "Source", "Status"})
	table.SetAutoWrapText(false)
	for _, r := range reports {
		row := []string{r.File, r.Method, r.Descriptor, "-", "-", "-", ""}
		if r.Error != "" {
			row[6] = failColor.Sprint(r.Error)
		} else {
			row[3] = strconv.Itoa(r.MaxStack)
			row[4] = strconv.Itoa(r.MaxLocals)
			row[5] = "computed"
			if r.Declared {
				row[5] = "declared"
			}
			row[6] = okColor.Sprint("ok")
		}
		table.Append(row)
	}
	failed := 0
	for _, r := range reports {
		if r.Error != "" {
			failed++
		}
	}
	table.SetFooter([]string{"", "", "", "", "", "methods", fmt.Sprintf("%d ok, %d failed", len(reports)-failed, failed)})
	table.Render()
}
