package docstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var ErrInvalidQuery = errors.New("invalid query")

type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Filter is an equality clause. Field may address nested values with dots.
type Filter struct {
	Field string
	Value any
}

// Query describes a multi-document read. Builder methods return copies so a
// Query value handed to a subscription is never mutated afterwards.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Direction  Direction
	Limit      int
}

func Collection(path string) *Query {
	return &Query{Collection: strings.Trim(strings.TrimSpace(path), "/")}
}

func (q *Query) Where(field string, value any) *Query {
	next := q.clone()
	next.Filters = append(next.Filters, Filter{Field: strings.TrimSpace(field), Value: value})
	return next
}

func (q *Query) Order(field string, direction Direction) *Query {
	next := q.clone()
	next.OrderBy = strings.TrimSpace(field)
	next.Direction = direction
	return next
}

func (q *Query) Take(limit int) *Query {
	next := q.clone()
	next.Limit = limit
	return next
}

func (q *Query) clone() *Query {
	next := *q
	next.Filters = append([]Filter(nil), q.Filters...)
	return &next
}

func (q *Query) Path() string {
	if q == nil {
		return ""
	}
	return q.Collection
}

func (q *Query) Validate() error {
	if q == nil {
		return fmt.Errorf("%w: nil query", ErrInvalidQuery)
	}
	if q.Collection == "" || strings.Contains(q.Collection, "/") {
		return fmt.Errorf("%w: collection path %q", ErrInvalidQuery, q.Collection)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidQuery)
	}
	for _, filter := range q.Filters {
		if filter.Field == "" {
			return fmt.Errorf("%w: empty filter field", ErrInvalidQuery)
		}
		if _, err := canonicalJSON(filter.Value); err != nil {
			return fmt.Errorf("%w: filter %q: %v", ErrInvalidQuery, filter.Field, err)
		}
	}
	switch q.Direction {
	case "", Ascending, Descending:
	default:
		return fmt.Errorf("%w: direction %q", ErrInvalidQuery, q.Direction)
	}
	return nil
}

// Key is the canonical identity of the query. Two queries with equal keys
// describe the same remote resource regardless of filter order.
func (q *Query) Key() string {
	if q == nil {
		return ""
	}

	clauses := make([]string, 0, len(q.Filters))
	for _, filter := range q.Filters {
		value, err := canonicalJSON(filter.Value)
		if err != nil {
			value = []byte(fmt.Sprintf("%#v", filter.Value))
		}
		clauses = append(clauses, filter.Field+"=="+string(value))
	}
	sort.Strings(clauses)

	var b strings.Builder
	b.WriteString("query:")
	b.WriteString(q.Collection)
	for _, clause := range clauses {
		b.WriteString("|where:")
		b.WriteString(clause)
	}
	if q.OrderBy != "" {
		direction := q.Direction
		if direction == "" {
			direction = Ascending
		}
		b.WriteString("|order:" + q.OrderBy + ":" + string(direction))
	}
	if q.Limit > 0 {
		b.WriteString("|limit:" + strconv.Itoa(q.Limit))
	}
	return b.String()
}

// DocRef addresses a single document.
type DocRef struct {
	Collection string
	ID         string
}

func Doc(collection string, id string) *DocRef {
	return &DocRef{
		Collection: strings.Trim(strings.TrimSpace(collection), "/"),
		ID:         strings.TrimSpace(id),
	}
}

func (r *DocRef) Path() string {
	if r == nil {
		return ""
	}
	return r.Collection + "/" + r.ID
}

func (r *DocRef) Key() string {
	if r == nil {
		return ""
	}
	return "doc:" + r.Path()
}

func (r *DocRef) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil document reference", ErrInvalidQuery)
	}
	if r.Collection == "" || strings.Contains(r.Collection, "/") {
		return fmt.Errorf("%w: collection path %q", ErrInvalidQuery, r.Collection)
	}
	if r.ID == "" || strings.Contains(r.ID, "/") {
		return fmt.Errorf("%w: document id %q", ErrInvalidQuery, r.ID)
	}
	return nil
}

// canonicalJSON normalises a Go value through a JSON round trip so values
// written by Go code and values decoded from stored JSON compare equal.
func canonicalJSON(value any) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}

	return json.Marshal(decoded)
}

func lookupField(data map[string]any, field string) (any, bool) {
	var current any = data
	for _, part := range strings.Split(field, ".") {
		object, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = object[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func matchesFilters(data map[string]any, filters []Filter) bool {
	for _, filter := range filters {
		value, ok := lookupField(data, filter.Field)
		if !ok {
			return false
		}

		got, err := canonicalJSON(value)
		if err != nil {
			return false
		}
		want, err := canonicalJSON(filter.Value)
		if err != nil {
			return false
		}
		if string(got) != string(want) {
			return false
		}
	}
	return true
}

func compareValues(left any, right any) int {
	leftRank, rightRank := typeRank(left), typeRank(right)
	if leftRank != rightRank {
		return leftRank - rightRank
	}

	switch l := left.(type) {
	case bool:
		r := right.(bool)
		switch {
		case l == r:
			return 0
		case !l:
			return -1
		default:
			return 1
		}
	case float64:
		r := right.(float64)
		switch {
		case l < r:
			return -1
		case l > r:
			return 1
		default:
			return 0
		}
	case string:
		return strings.Compare(l, right.(string))
	default:
		return 0
	}
}

func typeRank(value any) int {
	switch value.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}
