package library

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Combjellyshen/ZoteroBridge/internal/ident"
	"github.com/Combjellyshen/ZoteroBridge/internal/session"
)

var errUnsupportedField = errors.New("duplicate detection supports title, doi and isbn")

// DuplicateGroup is a set of items sharing one normalized field value.
type DuplicateGroup struct {
	Value   string
	ItemIDs []int64
	Count   int
}

// FindDuplicates groups non-note, non-attachment items by a normalized
// key: exact value for title, case-insensitive for DOI, hyphen- and
// space-stripped for ISBN. Only groups with more than one member are
// returned, largest first.
func FindDuplicates(s *session.Session, field string) ([]DuplicateGroup, error) {
	var fieldName string
	var normalize func(string) string

	switch field {
	case "title":
		fieldName = "title"
		normalize = func(v string) string { return v }
	case "doi":
		fieldName = "DOI"
		normalize = ident.DOI
	case "isbn":
		fieldName = "ISBN"
		normalize = ident.ISBN
	default:
		return nil, fmt.Errorf("%w: got %q", errUnsupportedField, field)
	}

	values, err := s.DB().ItemFieldValues(fieldName)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]int64)
	for itemID, value := range values {
		key := normalize(value)
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], itemID)
	}

	var out []DuplicateGroup
	for value, ids := range groups {
		if len(ids) < 2 {
			continue
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out = append(out, DuplicateGroup{Value: value, ItemIDs: ids, Count: len(ids)})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out, nil
}
