package database

import "fmt"

// ItemCreators returns the creators attached to an item in order.
func (db *DB) ItemCreators(itemID int64) ([]Creator, error) {
	if err := db.connected(); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
        SELECT c.creatorID, c.firstName, c.lastName, c.fieldMode
        FROM itemCreators ic
        JOIN creators c ON c.creatorID = ic.creatorID
        WHERE ic.itemID = ?
        ORDER BY ic.orderIndex
    `, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query item creators: %w", err)
	}
	defer rows.Close()

	var creators []Creator
	for rows.Next() {
		var c Creator
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.FieldMode); err != nil {
			return nil, fmt.Errorf("failed to scan creator: %w", err)
		}
		creators = append(creators, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating creators: %w", err)
	}
	return creators, nil
}

// ItemsSharingCreator returns, for every other item sharing a creator row
// with itemID, the pair (other item, shared creator display name).
func (db *DB) ItemsSharingCreator(itemID int64) (map[int64][]string, error) {
	if err := db.connected(); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
        SELECT other.itemID, c.firstName, c.lastName
        FROM itemCreators mine
        JOIN itemCreators other
          ON other.creatorID = mine.creatorID AND other.itemID != mine.itemID
        JOIN creators c ON c.creatorID = mine.creatorID
        WHERE mine.itemID = ?
    `, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shared creators: %w", err)
	}
	defer rows.Close()

	shared := make(map[int64][]string)
	for rows.Next() {
		var other int64
		var first, last string
		if err := rows.Scan(&other, &first, &last); err != nil {
			return nil, fmt.Errorf("failed to scan shared creator: %w", err)
		}
		name := last
		if first != "" {
			name = first + " " + last
		}
		shared[other] = append(shared[other], name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shared creators: %w", err)
	}
	return shared, nil
}
