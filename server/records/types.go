package records

import "context"

// Record is one row keyed by column name
type Record map[string]interface{}

// ID returns the string id of the record, or "" when absent
func (r Record) ID() string {
	if v, ok := r["id"].(string); ok {
		return v
	}
	return ""
}

// Clone returns a shallow copy
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Op is a filter operator
type Op string

const (
	OpEq  Op = "eq"
	OpNeq Op = "neq"
	OpIn  Op = "in"
)

// Filter restricts a query to rows whose column matches value
type Filter struct {
	Column string      `json:"column"`
	Op     Op          `json:"op"`
	Value  interface{} `json:"value"`
}

// Eq builds an equality filter
func Eq(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

// In builds a membership filter
func In(column string, values []string) Filter {
	vals := make([]interface{}, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return Filter{Column: column, Op: OpIn, Value: vals}
}

// Order sorts a listing by column
type Order struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc"`
}

// Query describes a list call: filters, ordering and an offset/limit range
type Query struct {
	Columns []string `json:"columns,omitempty"`
	Filters []Filter `json:"filters,omitempty"`
	Order   []Order  `json:"order,omitempty"`
	Offset  int      `json:"offset,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

// Gateway is row-level CRUD against named resources. Create and Update
// reject constraint violations with a *ConstraintError.
type Gateway interface {
	Create(ctx context.Context, resource string, rec Record) (Record, error)
	Upsert(ctx context.Context, resource string, rec Record) (Record, error)
	Update(ctx context.Context, resource, id string, rec Record) (Record, error)
	Get(ctx context.Context, resource, id string) (Record, error)
	List(ctx context.Context, resource string, q Query) ([]Record, error)
	Count(ctx context.Context, resource string, filters ...Filter) (int, error)
	Delete(ctx context.Context, resource string, filters ...Filter) (int64, error)
	// Raw runs a read-only SELECT, typically a join across resources
	Raw(ctx context.Context, query string, args ...interface{}) ([]Record, error)
}
