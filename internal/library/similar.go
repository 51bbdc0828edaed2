// Package library implements the read-mostly operations layered on the
// relational accessor: fulltext search with context, similarity and
// duplicate scoring, orphan cleanup, and item merging.
package library

import (
	"sort"

	"github.com/Combjellyshen/ZoteroBridge/internal/session"
)

// Result caps. Similarity lists are explanatory aids, not exports, so they
// stay short.
const (
	maxSimilarByScore      = 20
	maxSimilarByCollection = 50
)

// SimilarItem is one similarity candidate. Shared lists the tag or creator
// names the candidate has in common with the query item, for
// explainability; it is empty for collection co-membership, which is
// boolean rather than weighted.
type SimilarItem struct {
	ItemID      int64
	Title       string
	SharedCount int
	Shared      []string
}

// FindSimilarByTags returns items sharing at least minShared tags with
// itemID, ordered by shared-tag count descending, capped at 20. The item
// itself is never returned.
func FindSimilarByTags(s *session.Session, itemID int64, minShared int) ([]SimilarItem, error) {
	if _, err := s.DB().GetItem(itemID); err != nil {
		return nil, err
	}

	shared, err := s.DB().ItemsSharingTag(itemID)
	if err != nil {
		return nil, err
	}
	return rankShared(s, shared, minShared)
}

// FindSimilarByCreators returns items sharing creator identity with
// itemID, same shape as FindSimilarByTags, capped at 20.
func FindSimilarByCreators(s *session.Session, itemID int64) ([]SimilarItem, error) {
	if _, err := s.DB().GetItem(itemID); err != nil {
		return nil, err
	}

	shared, err := s.DB().ItemsSharingCreator(itemID)
	if err != nil {
		return nil, err
	}
	return rankShared(s, shared, 1)
}

func rankShared(s *session.Session, shared map[int64][]string, minShared int) ([]SimilarItem, error) {
	var out []SimilarItem
	for id, names := range shared {
		if len(names) < minShared {
			continue
		}
		sort.Strings(names)
		out = append(out, SimilarItem{ItemID: id, SharedCount: len(names), Shared: names})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].SharedCount != out[j].SharedCount {
			return out[i].SharedCount > out[j].SharedCount
		}
		return out[i].ItemID < out[j].ItemID
	})
	if len(out) > maxSimilarByScore {
		out = out[:maxSimilarByScore]
	}

	for i := range out {
		title, err := s.DB().ItemTitle(out[i].ItemID)
		if err != nil {
			return nil, err
		}
		out[i].Title = title
	}
	return out, nil
}

// FindSimilarByCollection returns items co-located with itemID in any
// collection, capped at 50. Membership is boolean, so the result carries
// no score and no ordering guarantee beyond determinism.
func FindSimilarByCollection(s *session.Session, itemID int64) ([]SimilarItem, error) {
	if _, err := s.DB().GetItem(itemID); err != nil {
		return nil, err
	}

	collections, err := s.DB().ItemCollections(itemID)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool)
	var ids []int64
	for _, collectionID := range collections {
		members, err := s.DB().CollectionItems(collectionID)
		if err != nil {
			return nil, err
		}
		for _, member := range members {
			if member.ID == itemID || seen[member.ID] {
				continue
			}
			seen[member.ID] = true
			ids = append(ids, member.ID)
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > maxSimilarByCollection {
		ids = ids[:maxSimilarByCollection]
	}

	out := make([]SimilarItem, 0, len(ids))
	for _, id := range ids {
		title, err := s.DB().ItemTitle(id)
		if err != nil {
			return nil, err
		}
		out = append(out, SimilarItem{ItemID: id, Title: title})
	}
	return out, nil
}
