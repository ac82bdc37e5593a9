package ormlite

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/table"

	"github.com/golobby/ormlite/schema"
)

var heading = color.New(color.FgCyan, color.Bold)

// Schematic prints every registered connection's view of the registered models.
func Schematic(w io.Writer) {
	connectionsMu.RLock()
	names := make([]string, 0, len(globalConnections))
	for name := range globalConnections {
		names = append(names, name)
	}
	connectionsMu.RUnlock()
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "----------------%s---------------\n", name)
		GetConnection(name).Schematic(w)
		fmt.Fprintln(w, "-----------------------------------")
	}
}

// Schematic prints the registered models as rendered by db's dialect.
func (db *DB) Schematic(w io.Writer) {
	d := db.Dialect()
	heading.Fprintf(w, "SQL Dialect: %s\n", d.Name())
	for _, md := range schema.Models() {
		heading.Fprintf(w, "%s => %s\n", md.Name, d.QuoteTable(md))
		t := table.NewWriter()
		t.AppendHeader(table.Row{"Field", "Column", "Type", "Primary Key", "Nullable", "References"})
		for _, f := range md.Fields {
			ref := ""
			if f.ForeignKey != nil {
				ref = f.ForeignKey.References.Name()
			}
			t.AppendRow(table.Row{f.Name, d.ColumnName(f), d.ColumnType(f), f.IsPrimaryKey, f.Nullable, ref})
		}
		fmt.Fprintln(w, t.Render())
		for _, r := range md.References {
			kind := "1-1"
			if r.Many {
				kind = "1-N"
			}
			fmt.Fprintf(w, "%s %s %s => %s\n", md.Name, kind, r.ReferenceType.Name(), r.Name)
		}
		fmt.Fprintln(w)
	}
}
