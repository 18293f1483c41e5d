// Package query implements the Query value type and feature_filter parsing
// described in spec §3 and §4.2: a point/range selection over timestamps,
// plus zero or more conjunctive "field op value" filters evaluated against a
// descriptor's feature map.
package query

import (
	"strconv"
	"strings"
)

// Op is a comparison operator recognised in a feature_filter string.
type Op int

const (
	OpEq Op = iota
	OpGte
	OpLte
	OpGt
	OpLt
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpGte:
		return ">="
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpLt:
		return "<"
	default:
		return "?"
	}
}

// Filter is one parsed "field op value" clause.
type Filter struct {
	Field string
	Op    Op
	Value float64
	// Raw is the value text as written, kept for string-valued features
	// (value comparisons against a feature.Str fall back to Raw).
	Raw string
}

// Query specifies a selection over the index as described in spec §3.
//
// Limit semantics: 0 returns no results (the documented limit=0 boundary
// case), a negative value means unlimited, a positive value truncates the
// result to that many entries after sorting.
type Query struct {
	TimestampStart uint64
	TimestampEnd   uint64
	FeatureFilters []string
	Limit          int
	Descending     bool
}

// Unlimited is the Limit value meaning "no truncation".
const Unlimited = -1

// operators in the first-match-wins order mandated by spec §4.2: >= and <=
// must be tried before > and < or a ">=" filter would mis-split on ">".
var operatorOrder = []struct {
	text string
	op   Op
}{
	{">=", OpGte},
	{"<=", OpLte},
	{">", OpGt},
	{"<", OpLt},
	{"=", OpEq},
}

// ParseFilter parses one "field op value" string. An unparsable filter
// returns ok=false, which callers treat as QueryBadFilter (reject the
// descriptor, per spec §7).
func ParseFilter(s string) (Filter, bool) {
	for _, cand := range operatorOrder {
		idx := strings.Index(s, cand.text)
		if idx <= 0 {
			continue
		}
		field := strings.TrimSpace(s[:idx])
		rawValue := strings.TrimSpace(s[idx+len(cand.text):])
		if field == "" || rawValue == "" {
			return Filter{}, false
		}
		num, err := strconv.ParseFloat(rawValue, 64)
		if err != nil {
			// Not numeric: still a valid filter for string-valued
			// features, but only "=" makes sense.
			if cand.op != OpEq {
				return Filter{}, false
			}
			return Filter{Field: field, Op: cand.op, Raw: rawValue}, true
		}
		return Filter{Field: field, Op: cand.op, Value: num, Raw: rawValue}, true
	}
	return Filter{}, false
}

// ParseFilters parses every filter string in the query, returning false if
// any one fails to parse.
func (q Query) ParseFilters() ([]Filter, bool) {
	out := make([]Filter, 0, len(q.FeatureFilters))
	for _, f := range q.FeatureFilters {
		parsed, ok := ParseFilter(f)
		if !ok {
			return nil, false
		}
		out = append(out, parsed)
	}
	return out, true
}
