package library

import (
	"unicode"

	"github.com/Combjellyshen/ZoteroBridge/internal/database"
	"github.com/Combjellyshen/ZoteroBridge/internal/session"
)

// ellipsis marks a truncated context window edge.
const ellipsis = "..."

// ContextMatch is a fulltext hit plus a context window around the first
// occurrence of the query. Reconstructed mirrors the content source: when
// true the window comes from bag-of-words content and word order around
// the match is not the document's.
type ContextMatch struct {
	database.FulltextMatch
	Context       string
	Reconstructed bool
}

// SearchFulltext matches the query against the inverted index. Ordering is
// the parent item's modification time, newest first.
func SearchFulltext(s *session.Session, query string, libraryID int64) ([]database.FulltextMatch, error) {
	return s.DB().SearchFulltext(query, libraryID)
}

// SearchFulltextWithContext runs the search, then extracts a window of
// contextLength characters on each side of the first case-insensitive
// occurrence of the query in the attachment's content. Hits without any
// reconstructable content keep an empty context rather than being dropped.
func SearchFulltextWithContext(s *session.Session, query string, libraryID int64, contextLength int) ([]ContextMatch, error) {
	matches, err := s.DB().SearchFulltext(query, libraryID)
	if err != nil {
		return nil, err
	}

	out := make([]ContextMatch, 0, len(matches))
	for _, m := range matches {
		content, err := s.DB().FulltextContent(m.AttachmentID)
		if err != nil {
			return nil, err
		}

		cm := ContextMatch{FulltextMatch: m}
		if content != nil && content.Text != "" {
			cm.Context = contextWindow(content.Text, query, contextLength)
			cm.Reconstructed = content.Reconstructed
		}
		out = append(out, cm)
	}
	return out, nil
}

// contextWindow returns n characters on each side of the first
// case-insensitive occurrence of query in text, with ellipsis markers on
// truncated edges. An absent query yields "". The window is measured in
// runes, never bytes: slicing mid-rune would emit invalid UTF-8, and
// lowercasing can shift byte offsets for some scripts, so the match is
// located by per-rune case folding instead of indexing a lowered copy.
func contextWindow(text, query string, n int) string {
	runes := []rune(text)
	q := []rune(query)
	if len(q) == 0 || len(q) > len(runes) {
		return ""
	}

	idx := -1
	for i := 0; i+len(q) <= len(runes); i++ {
		match := true
		for j := range q {
			if unicode.ToLower(runes[i+j]) != unicode.ToLower(q[j]) {
				match = false
				break
			}
		}
		if match {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ""
	}

	start := idx - n
	prefix := ""
	if start > 0 {
		prefix = ellipsis
	} else {
		start = 0
	}

	end := idx + len(q) + n
	suffix := ""
	if end < len(runes) {
		suffix = ellipsis
	} else {
		end = len(runes)
	}

	return prefix + string(runes[start:end]) + suffix
}
