package metadata

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Filter builds the conjunctive filter expressions accepted by the list
// calls. Clauses join with " AND " in the order they were added; empty
// clauses are dropped.
type Filter struct {
	clauses []string
	err     error
}

func NewFilter() *Filter {
	return &Filter{}
}

func (f *Filter) SchemaTitle(titles ...string) *Filter {
	switch len(titles) {
	case 0:
	case 1:
		f.clauses = append(f.clauses, fmt.Sprintf("schema_title=%q", titles[0]))
	default:
		parts := make([]string, len(titles))
		for i, t := range titles {
			parts[i] = fmt.Sprintf("schema_title=%q", t)
		}
		f.clauses = append(f.clauses, "("+strings.Join(parts, " OR ")+")")
	}
	return f
}

func (f *Filter) InContext(contextName string) *Filter {
	if contextName != "" {
		f.clauses = append(f.clauses, fmt.Sprintf("in_context(%q)", contextName))
	}
	return f
}

func (f *Filter) ParentContexts(contextNames ...string) *Filter {
	if len(contextNames) > 0 {
		f.clauses = append(f.clauses, fmt.Sprintf("parent_contexts:%q", strings.Join(contextNames, ",")))
	}
	return f
}

func (f *Filter) Uri(uri string) *Filter {
	if uri != "" {
		f.clauses = append(f.clauses, fmt.Sprintf("uri=%q", uri))
	}
	return f
}

func (f *Filter) CreateTimeAtOrAfter(v interface{}) *Filter {
	return f.createTime(">=", v)
}

func (f *Filter) CreateTimeAtOrBefore(v interface{}) *Filter {
	return f.createTime("<=", v)
}

func (f *Filter) createTime(op string, v interface{}) *Filter {
	ts, err := FormatTimestamp(v)
	if err != nil {
		f.err = err
		return f
	}
	f.clauses = append(f.clauses, fmt.Sprintf("create_time%s%q", op, ts))
	return f
}

// Expr appends a raw clause for predicates the builder has no helper for.
func (f *Filter) Expr(clause string) *Filter {
	if clause != "" {
		f.clauses = append(f.clauses, clause)
	}
	return f
}

func (f *Filter) Build() (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return strings.Join(f.clauses, " AND "), nil
}

// String is Build without the error, for call sites whose inputs cannot fail.
func (f *Filter) String() string {
	s, _ := f.Build()
	return s
}

// timestampLayouts are tried in order for string inputs. Layouts without a
// zone are taken as UTC.
var timestampLayouts = []struct {
	layout string
	naive  bool
}{
	{time.RFC3339Nano, false},
	{"2006-01-02T15:04:05.999999999", true},
	{"2006-01-02", true},
}

// FormatTimestamp renders a filter timestamp as RFC-3339 UTC ending in "Z".
// Accepted inputs: time.Time, RFC-3339 strings, zone-less datetime strings
// (assumed UTC), and date-only YYYY-MM-DD strings (midnight UTC).
func FormatTimestamp(v interface{}) (string, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano), nil
	case string:
		for _, l := range timestampLayouts {
			parsed, err := time.Parse(l.layout, t)
			if err != nil {
				continue
			}
			if l.naive {
				parsed = parsed.UTC()
			}
			return parsed.UTC().Format(time.RFC3339Nano), nil
		}
		return "", errors.Errorf("unrecognized timestamp %q", t)
	}
	return "", errors.Errorf("unsupported timestamp type %T", v)
}
