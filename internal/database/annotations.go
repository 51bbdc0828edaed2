package database

import "fmt"

// annotationTypeNames maps the schema's numeric annotation types to names.
var annotationTypeNames = map[int64]string{
	1: "highlight",
	2: "note",
	3: "image",
	4: "ink",
	5: "underline",
}

// Annotations returns the annotations under a parent attachment in
// document order (sortIndex ascending).
func (db *DB) Annotations(attachmentItemID int64) ([]Annotation, error) {
	if err := db.connected(); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
        SELECT itemID, parentItemID, type,
               COALESCE(text, ''), COALESCE(comment, ''), COALESCE(color, ''),
               COALESCE(pageLabel, ''), sortIndex, COALESCE(position, '')
        FROM itemAnnotations
        WHERE parentItemID = ?
        ORDER BY sortIndex
    `, attachmentItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query annotations: %w", err)
	}
	defer rows.Close()

	var out []Annotation
	for rows.Next() {
		var a Annotation
		var typeCode int64
		err := rows.Scan(
			&a.ItemID, &a.ParentItemID, &typeCode,
			&a.Text, &a.Comment, &a.Color,
			&a.PageLabel, &a.SortIndex, &a.Position,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan annotation: %w", err)
		}
		a.Type = annotationTypeNames[typeCode]
		if a.Type == "" {
			a.Type = fmt.Sprintf("unknown(%d)", typeCode)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating annotations: %w", err)
	}
	return out, nil
}
