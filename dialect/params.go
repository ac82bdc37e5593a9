package dialect

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

func namedArg(name string, v any) any {
	return sql.Named(name, v)
}

// rewritePlaceholders calls fn for each @name marker outside quoted literals and identifiers and
// splices in what it returns. Variables such as @@IDENTITY are left alone. Dotted names such as
// @user.name are read whole when dotted is set.
func rewritePlaceholders(text string, dotted bool, fn func(name string, numeric bool) string) string {
	if !strings.Contains(text, "@") {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	n := len(text)
	for i := 0; i < n; {
		c := text[i]
		switch c {
		case '\'', '"', '`', '[':
			end := closingQuote(text, i)
			b.WriteString(text[i:end])
			i = end
			continue
		case '@':
			if i > 0 && (isIdentChar(text[i-1]) || text[i-1] == '@') {
				break
			}
			j := i + 1
			for j < n && (isIdentChar(text[j]) || dotted && text[j] == '.' && j+1 < n && isIdentChar(text[j+1])) {
				j++
			}
			if j == i+1 {
				break
			}
			name := text[i+1 : j]
			b.WriteString(fn(name, isDigits(name)))
			i = j
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

func closingQuote(text string, start int) int {
	open := text[start]
	closeCh := open
	if open == '[' {
		closeCh = ']'
	}
	for i := start + 1; i < len(text); i++ {
		if text[i] != closeCh {
			continue
		}
		if i+1 < len(text) && text[i+1] == closeCh && open != '[' {
			i++
			continue
		}
		return i + 1
	}
	return len(text)
}

func isIdentChar(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// ShiftPlaceholders renumbers positional markers by offset, used when nesting one statement in another.
func ShiftPlaceholders(text string, offset int) string {
	if offset == 0 {
		return text
	}
	return rewritePlaceholders(text, false, func(name string, numeric bool) string {
		if !numeric {
			return "@" + name
		}
		i, _ := strconv.Atoi(name)
		return Placeholder(i + offset)
	})
}

// Finalize turns positional @N markers into the backend's own placeholder syntax. Params are
// renumbered densely in order of first appearance so params no longer referenced by the text are dropped.
func (d *Dialect) Finalize(text string, params []Param) (string, []Param) {
	var out []Param
	seen := map[int]int{}
	sql := rewritePlaceholders(text, false, func(name string, numeric bool) string {
		if !numeric {
			return "@" + name
		}
		idx, _ := strconv.Atoi(name)
		if idx >= len(params) {
			return "@" + name
		}
		if d.positional {
			out = append(out, Param{Name: strconv.Itoa(len(out) + 1), Value: params[idx].Value})
			return d.placeholder(len(out))
		}
		n, ok := seen[idx]
		if !ok {
			out = append(out, Param{Value: params[idx].Value})
			n = len(out)
			seen[idx] = n
			out[n-1].Name = d.placeholder(n)
		}
		return d.placeholder(n)
	})
	return sql, out
}

// BindNamed binds @name markers from a map. Backends with named parameter support keep the
// names, sanitized; the others get positional placeholders.
func (d *Dialect) BindNamed(text string, named map[string]any) (string, []Param, error) {
	values := make(map[string]any, len(named))
	for k, v := range named {
		values[strings.ToLower(strings.TrimLeft(k, "@:$"))] = v
	}
	var (
		out     []Param
		missing []string
		seen    = map[string]int{}
	)
	sql := rewritePlaceholders(text, true, func(name string, numeric bool) string {
		v, ok := values[strings.ToLower(name)]
		if !ok {
			if !numeric {
				missing = append(missing, name)
			}
			return "@" + name
		}
		if d.namedParams {
			s := d.SanitizeParamName(name)
			if _, dup := seen[s]; !dup {
				seen[s] = len(out)
				out = append(out, Param{Name: s, Value: v, Named: true})
			}
			return "@" + s
		}
		if d.positional {
			out = append(out, Param{Name: name, Value: v})
			return d.placeholder(len(out))
		}
		n, dup := seen[name]
		if !dup {
			out = append(out, Param{Name: name, Value: v})
			n = len(out)
			seen[name] = n
		}
		return d.placeholder(n)
	})
	if len(missing) > 0 {
		return "", nil, fmt.Errorf("no value for parameter(s) @%s", strings.Join(missing, ", @"))
	}
	return sql, out, nil
}

// SanitizeParamName replaces characters that cannot appear in a parameter name.
func (d *Dialect) SanitizeParamName(name string) string {
	b := []byte(strings.TrimLeft(name, "@:$"))
	for i, c := range b {
		if !isIdentChar(c) {
			b[i] = '_'
		}
	}
	if len(b) == 0 || b[0] >= '0' && b[0] <= '9' {
		return "p" + string(b)
	}
	return string(b)
}
