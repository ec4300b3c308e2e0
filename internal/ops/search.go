package ops

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/household"
	"github.com/hpungsan/ghar/internal/store"
)

// Search limits
const (
	MaxQueryLength  = 200
	MaxSnippetChars = 120
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Query  string          // required
	Tags   []household.Tag // optional, default: every domain
	Limit  int             // default: 20, max: 100
	Offset int             // default: 0
}

// SearchResultItem is one matching record.
type SearchResultItem struct {
	Tag   household.Tag `json:"tag"`
	Key   string        `json:"storage_key"`
	ID    int64         `json:"id"`
	Name  string        `json:"name"`
	Field string        `json:"field"`
	// Snippet is HTML-safe: record text is escaped; only <b>...</b>
	// highlight tags are present.
	Snippet string `json:"snippet"`

	rank int
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Items      []SearchResultItem `json:"items"`
	Pagination Pagination         `json:"pagination"`
	Sort       string             `json:"sort"` // "relevance"
}

// Search finds records across domains whose text contains the query.
// Name matches rank above matches in other fields; ties go to the newest record.
// Passwords are never searched.
func Search(ctx context.Context, s store.Store, input SearchInput) (*SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, errors.NewInvalidRequest("query is required")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("query exceeds maximum length of %d characters", MaxQueryLength))
	}

	tags := input.Tags
	if len(tags) == 0 {
		tags = household.Tags
	}

	var items []SearchResultItem
	for _, tag := range tags {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCancelled("search")
		}
		coll, err := s.Load(ctx, tag.StorageKey())
		if err != nil {
			return nil, err
		}
		for _, rec := range coll {
			field, text, ok := firstMatch(rec, query)
			if !ok {
				continue
			}
			name := household.DisplayName(tag, rec)
			rank := 1
			if strings.Contains(strings.ToLower(name), strings.ToLower(query)) {
				rank = 2
			}
			id, _ := rec.ID()
			items = append(items, SearchResultItem{
				Tag:     tag,
				Key:     tag.StorageKey(),
				ID:      id,
				Name:    name,
				Field:   field,
				Snippet: buildSnippet(text, query, MaxSnippetChars),
				rank:    rank,
			})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].rank != items[j].rank {
			return items[i].rank > items[j].rank
		}
		return items[i].ID > items[j].ID
	})

	limit := clampLimit(input.Limit, DefaultSearchLimit, MaxSearchLimit)
	offset := max(input.Offset, 0)
	total := len(items)
	start := min(offset, total)
	end := min(start+limit, total)
	page := items[start:end]
	if page == nil {
		page = []SearchResultItem{}
	}

	return &SearchOutput{
		Items: page,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: end < total,
			Total:   total,
		},
		Sort: "relevance",
	}, nil
}

// firstMatch returns the first string field (in key order) containing query.
func firstMatch(rec store.Record, query string) (string, string, bool) {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	q := strings.ToLower(query)
	for _, k := range keys {
		if k == "password" {
			continue
		}
		s, ok := rec[k].(string)
		if ok && strings.Contains(strings.ToLower(s), q) {
			return k, s, true
		}
	}
	return "", "", false
}

// buildSnippet cuts a window of text around the first match of query, escapes
// it, and wraps the match in <b> tags.
func buildSnippet(text, query string, maxChars int) string {
	runes := []rune(text)
	lower := []rune(strings.ToLower(text))
	q := []rune(strings.ToLower(query))

	at := indexRunes(lower, q)
	if at < 0 || len(lower) != len(runes) {
		// Case folding changed the length; fall back to the plain text.
		return truncateSnippet(html.EscapeString(text), maxChars)
	}

	start := max(at-maxChars/3, 0)
	end := min(at+len(q)+maxChars/2, len(runes))

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(html.EscapeString(string(runes[start:at])))
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(string(runes[at : at+len(q)])))
	b.WriteString("</b>")
	b.WriteString(html.EscapeString(string(runes[at+len(q) : end])))
	if end < len(runes) {
		b.WriteString("...")
	}
	return b.String()
}

func indexRunes(s, sub []rune) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		match := true
		for j := range sub {
			if s[i+j] != sub[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// truncateSnippet truncates s to about maxChars without splitting a rune or
// an HTML entity.
func truncateSnippet(s string, maxChars int) string {
	if maxChars <= 0 {
		return "..."
	}
	if len(s) <= maxChars {
		return s
	}

	truncateAt := maxChars
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}
	if truncateAt == 0 {
		return "..."
	}

	truncated := s[:truncateAt]
	if lastAmp := strings.LastIndex(truncated, "&"); lastAmp != -1 && !strings.Contains(truncated[lastAmp:], ";") {
		truncated = truncated[:lastAmp]
	}
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > truncateAt/2 {
		truncated = truncated[:lastSpace]
	}
	return truncated + "..."
}
