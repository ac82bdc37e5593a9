package dialect

import (
	"fmt"
	"strconv"
	"strings"
)

// Pager renders a SELECT with its paging clause.
type Pager interface {
	Page(d *Dialect, p SelectParts) (string, error)
}

func body(p SelectParts, where string) string {
	var sb strings.Builder
	sb.WriteString(p.Select)
	sb.WriteString(" \n")
	sb.WriteString(p.From)
	if where != "" {
		sb.WriteString("\nWHERE ")
		sb.WriteString(where)
	}
	if p.GroupBy != "" {
		sb.WriteString("\n" + p.GroupBy)
	}
	if p.Having != "" {
		sb.WriteString("\n" + p.Having)
	}
	if p.OrderBy != "" {
		sb.WriteString("\n" + p.OrderBy)
	}
	return sb.String()
}

// LimitOffset appends LIMIT and OFFSET. NoLimit is written as the row count when only an offset is
// given; an empty NoLimit leaves LIMIT out.
type LimitOffset struct {
	NoLimit string
}

func (l LimitOffset) Page(_ *Dialect, p SelectParts) (string, error) {
	sql := body(p, p.Where)
	if !p.paged() {
		return sql, nil
	}
	switch {
	case p.Rows != nil:
		sql += "\nLIMIT " + strconv.Itoa(*p.Rows)
	case l.NoLimit != "":
		sql += "\nLIMIT " + l.NoLimit
	}
	if off := p.offset(); off > 0 {
		if p.Rows == nil && l.NoLimit == "" {
			sql += "\n"
		} else {
			sql += " "
		}
		sql += "OFFSET " + strconv.Itoa(off)
	}
	return sql, nil
}

// OffsetFetch is the standard window clause. The clause is only valid after ORDER BY, so
// ORDER BY 1 is added when the query has none.
type OffsetFetch struct{}

func (OffsetFetch) Page(_ *Dialect, p SelectParts) (string, error) {
	if !p.paged() {
		return body(p, p.Where), nil
	}
	if p.OrderBy == "" {
		p.OrderBy = "ORDER BY 1"
	}
	sql := body(p, p.Where) + "\nOFFSET " + strconv.Itoa(p.offset()) + " ROWS"
	if p.Rows != nil {
		sql += " FETCH NEXT " + strconv.Itoa(*p.Rows) + " ROWS ONLY"
	}
	return sql, nil
}

// TopEmulation pages on backends without OFFSET. A first page becomes SELECT TOP n. Later pages
// hold the primary key of the last skipped row in a variable and select the rows after it, so
// the primary key must follow the order of the query.
type TopEmulation struct {
	Variable string
}

func (t TopEmulation) Page(d *Dialect, p SelectParts) (string, error) {
	if !p.paged() {
		return body(p, p.Where), nil
	}
	off := p.offset()
	if off == 0 {
		p.Select = withTop(p.Select, *p.Rows)
		return body(p, p.Where), nil
	}
	if p.Distinct {
		return "", NewUnsupportedError(d.name, "DISTINCT combined with an offset", "page without DISTINCT or group the rows instead")
	}
	if p.Model == nil {
		return "", NewUnsupportedError(d.name, "offset paging without a model")
	}
	pk, err := p.Model.MustPrimaryKey("offset paging")
	if err != nil {
		return "", err
	}
	variable := t.Variable
	if variable == "" {
		variable = "@__pk"
	}
	pkCol := d.QuoteTable(p.Model) + "." + d.QuoteColumn(d.ColumnName(pk))
	ordered := p
	if ordered.OrderBy == "" {
		ordered.OrderBy = "ORDER BY " + pkCol
	}

	seek := ordered
	seek.Select = fmt.Sprintf("SELECT TOP %d %s = %s", off, variable, pkCol)

	page := ordered
	if p.Rows != nil {
		page.Select = withTop(p.Select, *p.Rows)
	}
	where := pkCol + " > " + variable
	if p.Where != "" {
		where += " AND (" + p.Where + ")"
	}

	var sb strings.Builder
	sb.WriteString("DECLARE " + variable + " " + d.ColumnType(pk) + ";\n")
	sb.WriteString(body(seek, p.Where) + ";\n")
	sb.WriteString(body(page, where))
	return sb.String(), nil
}

func withTop(sel string, rows int) string {
	top := "TOP " + strconv.Itoa(rows) + " "
	for _, prefix := range []string{"SELECT DISTINCT ", "SELECT "} {
		if strings.HasPrefix(strings.ToUpper(sel), prefix) {
			return sel[:len(prefix)] + top + sel[len(prefix):]
		}
	}
	return sel
}
