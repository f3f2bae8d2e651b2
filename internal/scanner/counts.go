package scanner

import "sort"

// Counts maps a key to the number of times it was seen.
// Missing keys read as zero.
type Counts map[string]int64

// Inc adds one to key, creating the entry on first use.
func (c Counts) Inc(key string) {
	c[key]++
}

// Get returns the count for key, or 0 if it was never seen.
func (c Counts) Get(key string) int64 {
	return c[key]
}

// Total returns the sum of all counts.
func (c Counts) Total() int64 {
	var total int64
	for _, n := range c {
		total += n
	}
	return total
}

// Keys returns the keys in lexical order.
func (c Counts) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Entry is a single key/count pair.
type Entry struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Top returns up to n entries ordered by count (highest first), ties broken
// by key. n <= 0 returns every entry.
func (c Counts) Top(n int) []Entry {
	entries := make([]Entry, 0, len(c))
	for k, v := range c {
		entries = append(entries, Entry{Key: k, Count: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Key < entries[j].Key
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
