package analyzer

import "sort"

// Count is one key of a Counter with its tally.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Counter is a frequency map that remembers the order keys were first seen.
// Counts only ever grow.
type Counter struct {
	counts map[string]int
	order  []string
}

func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int)}
}

// Inc adds one to key.
func (c *Counter) Inc(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

// Get returns the count for key, 0 if it was never seen.
func (c *Counter) Get(key string) int {
	return c.counts[key]
}

// Len returns the number of distinct keys.
func (c *Counter) Len() int {
	return len(c.order)
}

// Total returns the sum of all counts.
func (c *Counter) Total() int {
	total := 0
	for _, n := range c.counts {
		total += n
	}
	return total
}

// Entries returns the counts in first-seen order.
func (c *Counter) Entries() []Count {
	out := make([]Count, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, Count{Key: k, Count: c.counts[k]})
	}
	return out
}

// Map returns a copy of the counts.
func (c *Counter) Map() map[string]int {
	m := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		m[k] = v
	}
	return m
}

// Clone returns an independent copy of c.
func (c *Counter) Clone() *Counter {
	return &Counter{
		counts: c.Map(),
		order:  append([]string(nil), c.order...),
	}
}

// Ranked returns the counts sorted by count descending. Ties keep
// first-seen order.
func (c *Counter) Ranked() []Count {
	ranked := c.Entries()
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	return ranked
}

// Top returns the highest count, the first-seen key winning ties.
func (c *Counter) Top() (Count, bool) {
	var top Count
	found := false
	for _, k := range c.order {
		if n := c.counts[k]; !found || n > top.Count {
			top = Count{Key: k, Count: n}
			found = true
		}
	}
	return top, found
}
