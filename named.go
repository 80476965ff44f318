package ygggo_db

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// parseNamed rewrites :name placeholders outside quotes into the engine's
// positional form and returns the names in order. "::" casts are kept.
func parseNamed(query string, placeholder func(n int) string) (bound string, names []string) {
	var b strings.Builder
	b.Grow(len(query))
	var quote byte
	i := 0
	for i < len(query) {
		ch := query[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			b.WriteByte(ch)
			i++
			continue
		}
		switch ch {
		case '\'', '"', '`':
			quote = ch
		case ':':
			if i+1 < len(query) && query[i+1] == ':' {
				b.WriteString("::")
				i += 2
				continue
			}
			j := i + 1
			for j < len(query) && isIdentByte(query[j]) {
				j++
			}
			if j > i+1 {
				names = append(names, query[i+1:j])
				b.WriteString(placeholder(len(names)))
				i = j
				continue
			}
		}
		b.WriteByte(ch)
		i++
	}
	return b.String(), names
}

func isIdentByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}

// structOrMapToMap flattens a struct (using `db` tags) or passes a map through.
func structOrMapToMap(v any) (map[string]any, error) {
	switch m := v.(type) {
	case map[string]any:
		return m, nil
	case Params:
		return m, nil
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected struct or map, got %T", v)
	}
	rt := rv.Type()
	out := make(map[string]any, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if f.PkgPath != "" {
			continue
		}
		name := f.Tag.Get("db")
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		out[name] = rv.Field(i).Interface()
	}
	return out, nil
}

// bindArgs resolves arg against the placeholder names of a statement.
// arg may be nil, a map, a struct or a []any of positional values. The
// returned Params describe the binding for error reports.
func bindArgs(names []string, arg any) ([]any, Params, error) {
	switch a := arg.(type) {
	case nil:
		if len(names) == 0 {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("statement expects %d parameters, none given", len(names))
	case []any:
		p := make(Params, len(a))
		for i, v := range a {
			p[strconv.Itoa(i)] = v
		}
		return a, p, nil
	}
	m, err := structOrMapToMap(arg)
	if err != nil {
		return nil, nil, err
	}
	args := make([]any, len(names))
	for i, n := range names {
		v, ok := m[n]
		if !ok {
			return nil, Params(m), fmt.Errorf("missing value for parameter :%s", n)
		}
		args[i] = v
	}
	return args, Params(m), nil
}
