package library

import (
	"fmt"

	"github.com/Combjellyshen/ZoteroBridge/internal/database"
	"github.com/Combjellyshen/ZoteroBridge/internal/session"
)

// MergeResult itemizes a merge. Success is true exactly when no per-source
// error occurred; partial results are reported, not thrown.
type MergeResult struct {
	TargetID int64
	Notes    int // notes re-created under the target
	Tags     int // tags re-attached to the target
	Errors   []string
	Success  bool
}

// MergeItems consolidates duplicate items: for every source other than the
// target it re-creates the source's notes under the target (titled to show
// provenance) and re-attaches the source's tags by name and type. A failure
// on one source does not stop the remaining sources. Sources and their
// original notes and tags are NOT deleted; removal is the caller's separate
// decision.
func MergeItems(s *session.Session, targetID int64, sourceIDs []int64) (*MergeResult, error) {
	if _, err := s.DB().GetItem(targetID); err != nil {
		return nil, err
	}

	result := &MergeResult{TargetID: targetID}

	for _, sourceID := range sourceIDs {
		if sourceID == targetID {
			continue
		}

		source, err := s.DB().GetItem(sourceID)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("source %d: %v", sourceID, err))
			continue
		}

		label := source.Fields["title"]
		if label == "" {
			label = source.Key
		}

		transferNotes(s, source, targetID, label, result)
		transferTags(s, source, targetID, result)
	}

	result.Success = len(result.Errors) == 0
	return result, nil
}

// transferNotes re-creates the source's notes under the target. A failed
// note is recorded and skipped; the source's remaining notes still
// transfer.
func transferNotes(s *session.Session, source *database.Item, targetID int64, label string, result *MergeResult) {
	notes, err := s.DB().Notes(source.ID)
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("source %d notes: %v", source.ID, err))
		return
	}

	for _, note := range notes {
		title := note.Title
		if title == "" {
			title = "Note"
		}
		title = fmt.Sprintf("%s (merged from %s)", title, label)

		err := s.Mutate(func(db *database.DB) error {
			_, err := db.CreateNote(targetID, title, note.Text)
			return err
		})
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("source %d note %d: %v", source.ID, note.ItemID, err))
			continue
		}
		result.Notes++
	}
}

// transferTags re-attaches the source's tags to the target by name and
// type, continuing past individual failures like transferNotes.
func transferTags(s *session.Session, source *database.Item, targetID int64, result *MergeResult) {
	tags, err := s.DB().ItemTags(source.ID)
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("source %d tags: %v", source.ID, err))
		return
	}

	for _, tag := range tags {
		err := s.Mutate(func(db *database.DB) error {
			return db.AddTagToItem(targetID, tag.Name, tag.Type)
		})
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("source %d tag %q: %v", source.ID, tag.Name, err))
			continue
		}
		result.Tags++
	}
}
