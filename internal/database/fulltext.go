package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// SearchFulltext matches query as a case-insensitive substring against the
// words of the inverted index, for attachments whose parent item belongs to
// libraryID. Results are ordered by the parent item's modification time,
// newest first. That is a recency heuristic, not relevance ranking: the
// index stores no positions or frequencies to rank by.
func (db *DB) SearchFulltext(query string, libraryID int64) ([]FulltextMatch, error) {
	if err := db.connected(); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
        SELECT a.itemID, ai.key, a.parentItemID, p.dateModified,
               COALESCE(fi.indexedChars, 0), COALESCE(fi.totalChars, 0),
               COALESCE(fi.indexedPages, 0), COALESCE(fi.totalPages, 0)
        FROM fulltextItemWords fw
        JOIN fulltextWords w ON w.wordID = fw.wordID
        JOIN itemAttachments a ON a.itemID = fw.itemID
        JOIN items ai ON ai.itemID = a.itemID
        JOIN items p ON p.itemID = a.parentItemID
        LEFT JOIN fulltextItems fi ON fi.itemID = a.itemID
        WHERE p.libraryID = ?
          AND lower(w.word) LIKE '%' || lower(?) || '%'
        GROUP BY a.itemID
        ORDER BY p.dateModified DESC, a.itemID
    `, libraryID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search fulltext index: %w", err)
	}
	defer rows.Close()

	var matches []FulltextMatch
	for rows.Next() {
		var m FulltextMatch
		err := rows.Scan(
			&m.AttachmentID, &m.AttachmentKey, &m.ParentItemID, &m.DateModified,
			&m.IndexedChars, &m.TotalChars, &m.IndexedPages, &m.TotalPages,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fulltext match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fulltext matches: %w", err)
	}

	for i := range matches {
		title, err := db.ItemTitle(matches[i].ParentItemID)
		if err != nil {
			return nil, err
		}
		matches[i].Title = title
	}
	return matches, nil
}

// FulltextContent returns document content for an attachment. Schema
// versions that carry a verbatim content table are preferred; otherwise the
// content is reconstructed as a bag of words in lexical order, which does
// NOT preserve the original word order. The Reconstructed flag tells the
// caller which guarantee it received.
func (db *DB) FulltextContent(attachmentItemID int64) (*FulltextContent, error) {
	if err := db.connected(); err != nil {
		return nil, err
	}

	hasVerbatim, err := db.tableExists("fulltextContent")
	if err != nil {
		return nil, err
	}
	if hasVerbatim {
		var text string
		err := db.conn.QueryRow(
			"SELECT content FROM fulltextContent WHERE itemID = ?", attachmentItemID,
		).Scan(&text)
		if err == nil {
			return &FulltextContent{Text: text, Reconstructed: false}, nil
		}
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("failed to query verbatim content: %w", err)
		}
		// No verbatim row for this attachment: fall through.
	}

	rows, err := db.conn.Query(`
        SELECT w.word
        FROM fulltextItemWords fw
        JOIN fulltextWords w ON w.wordID = fw.wordID
        WHERE fw.itemID = ?
        ORDER BY w.word
    `, attachmentItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexed words: %w", err)
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var word string
		if err := rows.Scan(&word); err != nil {
			return nil, fmt.Errorf("failed to scan indexed word: %w", err)
		}
		words = append(words, word)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating indexed words: %w", err)
	}

	return &FulltextContent{
		Text:          strings.Join(words, " "),
		Reconstructed: true,
	}, nil
}
