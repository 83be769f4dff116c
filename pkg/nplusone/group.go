package nplusone

import (
	"time"

	"github.com/leapstack-labs/mercury/pkg/core"
	"github.com/leapstack-labs/mercury/pkg/normalize"
)

// Group is one normalized pattern and the records that produced it, in execution order.
type Group struct {
	Pattern string       `json:"pattern"`
	Queries []core.Query `json:"queries"`
}

// Count returns the number of records in the group.
func (g Group) Count() int {
	return len(g.Queries)
}

// Samples returns the raw SQL of the first n records.
func (g Group) Samples(n int) []string {
	if n > len(g.Queries) {
		n = len(g.Queries)
	}
	if n <= 0 {
		return nil
	}
	out := make([]string, n)
	for i := range out {
		out[i] = g.Queries[i].SQL
	}
	return out
}

// Duration sums the execution time of the group's records.
func (g Group) Duration() time.Duration {
	return core.TotalDuration(g.Queries)
}

// GroupQueries groups records by normalize.Normalize.
func GroupQueries(queries []core.Query) []Group {
	return GroupQueriesFunc(normalize.Normalize, queries)
}

// GroupQueriesFunc groups records by the key norm returns for their SQL.
// Groups are ordered by first appearance; every record lands in exactly one group.
func GroupQueriesFunc(norm func(string) string, queries []core.Query) []Group {
	if len(queries) == 0 {
		return nil
	}

	index := make(map[string]int)
	var groups []Group
	for _, q := range queries {
		key := norm(q.SQL)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Pattern: key})
		}
		groups[i].Queries = append(groups[i].Queries, q)
	}
	return groups
}

// Lookup finds the group for a pattern.
func Lookup(groups []Group, pattern string) (Group, bool) {
	for _, g := range groups {
		if g.Pattern == pattern {
			return g, true
		}
	}
	return Group{}, false
}
