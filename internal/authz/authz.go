// Package authz holds the allow-list gating who may schedule meetings.
package authz

import (
	"sort"
	"strconv"
	"strings"
)

// AllowList is the set of chat identifiers permitted to issue scheduling
// commands. It is built once at startup and read-only afterwards, so it is
// safe for concurrent readers without locking.
type AllowList struct {
	ids map[int64]struct{}
}

// FromList parses a comma-separated list of numeric chat ids. Entries that
// do not parse are skipped, not fatal; group chat ids may be negative.
func FromList(raw string) AllowList {
	ids := make(map[int64]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids[id] = struct{}{}
	}
	return AllowList{ids: ids}
}

// Allows reports whether the chat id is on the list. Deny by default.
func (a AllowList) Allows(id int64) bool {
	_, ok := a.ids[id]
	return ok
}

// Len returns the number of configured ids.
func (a AllowList) Len() int { return len(a.ids) }

// IDs returns the configured ids in ascending order, for display.
func (a AllowList) IDs() []int64 {
	out := make([]int64, 0, len(a.ids))
	for id := range a.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
