package ops

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/household"
	"github.com/hpungsan/ghar/internal/store"
)

// Pagination limits
const (
	DefaultListLimit   = 20
	MaxListLimit       = 100
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
	DefaultLatestLimit = 10
	MaxLatestLimit     = 50
	MaxBulkDeleteIDs   = 100
)

// MaskedSecret replaces password values unless the caller asks to reveal them.
const MaskedSecret = "••••••••"

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// ResolveDomain maps user input to a domain tag.
// Rules:
// - a tag name, storage key, or route keyword selects that domain
// - a value starting with "/" is treated as a navigation path (never fails)
// - anything else is ErrInvalidRequest
func ResolveDomain(domain string) (household.Tag, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return "", errors.NewInvalidRequest("domain is required")
	}
	if strings.HasPrefix(domain, "/") {
		return household.ResolveTag(domain), nil
	}
	tag, ok := household.ParseTag(domain)
	if !ok {
		return "", errors.NewInvalidRequest(fmt.Sprintf("unknown domain %q", domain))
	}
	return tag, nil
}

// ParseID parses a record id given as text.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewInvalidRequest(fmt.Sprintf("invalid id %q", s))
	}
	return id, nil
}

// clampLimit applies the default when limit is unset and caps it at max.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// paginate slices coll by offset and limit.
func paginate(coll store.Collection, limit, offset int) (store.Collection, Pagination) {
	offset = max(offset, 0)
	total := len(coll)
	start := min(offset, total)
	end := min(start+limit, total)
	page := coll[start:end]
	if page == nil {
		page = store.Collection{}
	}
	return page, Pagination{
		Limit:   limit,
		Offset:  offset,
		HasMore: end < total,
		Total:   total,
	}
}

// maskSecrets returns a copy of rec with password values hidden.
func maskSecrets(rec store.Record) store.Record {
	if _, ok := rec["password"]; !ok {
		return rec
	}
	out := rec.Clone()
	if s, _ := out["password"].(string); s != "" {
		out["password"] = MaskedSecret
	}
	return out
}
