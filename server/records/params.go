package records

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/gear6io/promptvalley/pkg/errors"
)

// Reserved query parameters; every other parameter is a column filter
const (
	ParamSelect = "select"
	ParamOrder  = "order"
	ParamOffset = "offset"
	ParamLimit  = "limit"
)

// EncodeQuery renders q as URL parameters in the form read by DecodeQuery:
// select=a,b order=created_at.desc,id offset=N limit=N and col=op.value
func EncodeQuery(q Query) url.Values {
	v := url.Values{}
	if len(q.Columns) > 0 {
		v.Set(ParamSelect, strings.Join(q.Columns, ","))
	}
	if len(q.Order) > 0 {
		parts := make([]string, len(q.Order))
		for i, o := range q.Order {
			parts[i] = o.Column
			if o.Desc {
				parts[i] += ".desc"
			}
		}
		v.Set(ParamOrder, strings.Join(parts, ","))
	}
	if q.Offset > 0 {
		v.Set(ParamOffset, strconv.Itoa(q.Offset))
	}
	if q.Limit > 0 {
		v.Set(ParamLimit, strconv.Itoa(q.Limit))
	}
	for _, f := range q.Filters {
		v.Add(f.Column, EncodeFilter(f))
	}
	return v
}

// EncodeFilters renders filters alone, as used by count
func EncodeFilters(filters []Filter) url.Values {
	return EncodeQuery(Query{Filters: filters})
}

// EncodeFilter renders the op.value part of a filter parameter
func EncodeFilter(f Filter) string {
	switch f.Op {
	case OpIn:
		vals, _ := inValues(f.Value)
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = fmt.Sprint(v)
		}
		return "in.(" + strings.Join(parts, ",") + ")"
	case OpNeq:
		if f.Value == nil {
			return "not.null"
		}
		return "neq." + fmt.Sprint(f.Value)
	}
	if f.Value == nil {
		return "is.null"
	}
	return "eq." + fmt.Sprint(f.Value)
}

// DecodeQuery parses URL parameters produced by EncodeQuery. Filters come
// out sorted by column so the resulting SQL is stable.
func DecodeQuery(params map[string]string) (Query, error) {
	var q Query

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := params[key]
		switch key {
		case ParamSelect:
			for _, col := range strings.Split(value, ",") {
				if col = strings.TrimSpace(col); col != "" {
					q.Columns = append(q.Columns, col)
				}
			}
		case ParamOrder:
			for _, part := range strings.Split(value, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				o := Order{Column: part}
				if col, dir, ok := strings.Cut(part, "."); ok {
					o.Column = col
					o.Desc = strings.EqualFold(dir, "desc")
				}
				q.Order = append(q.Order, o)
			}
		case ParamOffset, ParamLimit:
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return Query{}, errors.New(ErrInvalidValue, key+" must be a non-negative integer", err).AddContext("value", value)
			}
			if key == ParamOffset {
				q.Offset = n
			} else {
				q.Limit = n
			}
		default:
			q.Filters = append(q.Filters, DecodeFilter(key, value))
		}
	}
	return q, nil
}

// DecodeFilter parses op.value; a value without a known operator is an
// equality match on the whole string
func DecodeFilter(column, value string) Filter {
	op, rest, _ := strings.Cut(value, ".")
	switch op {
	case "in":
		list := strings.TrimSuffix(strings.TrimPrefix(rest, "("), ")")
		var vals []string
		if list != "" {
			vals = strings.Split(list, ",")
		}
		return In(column, vals)
	case "neq":
		return Filter{Column: column, Op: OpNeq, Value: paramValue(rest)}
	case "eq":
		return Eq(column, paramValue(rest))
	case "is":
		if rest == "null" {
			return Eq(column, nil)
		}
	case "not":
		if rest == "null" {
			return Filter{Column: column, Op: OpNeq}
		}
	}
	return Eq(column, paramValue(value))
}

func paramValue(s string) interface{} {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
