package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jrsteele09/distritherm-admin/pagination"
	"gopkg.in/yaml.v3"
)

type printer struct {
	format string
	w      io.Writer
}

func newPrinter(format string, w io.Writer) (printer, error) {
	switch f := strings.ToLower(format); f {
	case "table", "json", "yaml":
		return printer{format: f, w: w}, nil
	}
	return printer{}, fmt.Errorf("unknown output format %q", format)
}

// print writes v as json or yaml, or calls table with a tab aligned writer.
func (p printer) print(v any, table func(w io.Writer)) error {
	switch p.format {
	case "json":
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

// printPage prints a page of items with a footer showing the position in the collection.
func printPage[T any](p printer, page pagination.Page[T], header string, row func(T) string) error {
	return p.print(page, func(w io.Writer) {
		fmt.Fprintln(w, header)
		for _, it := range page.Items {
			fmt.Fprintln(w, row(it))
		}
		fmt.Fprintf(w, "\npage %d/%d\t%d total\n", page.Meta.Page, page.Meta.LastPage, page.Meta.Total)
	})
}
