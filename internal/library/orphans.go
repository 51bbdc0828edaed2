package library

import (
	"fmt"
	"os"

	"github.com/Combjellyshen/ZoteroBridge/internal/database"
	"github.com/Combjellyshen/ZoteroBridge/internal/session"
)

// Orphan classification reasons.
const (
	ReasonInvalidPath  = "invalid_path"   // key or path malformed, cannot resolve
	ReasonFileNotFound = "file_not_found" // resolved cleanly but absent on disk
)

// OrphanAttachment is a stored attachment whose backing file is missing.
type OrphanAttachment struct {
	Attachment   database.Attachment
	ResolvedPath string // empty when resolution itself failed
	Reason       string
}

// CleanupResult reports an orphan cleanup run. Deletion is best-effort:
// individual failures are accumulated and do not abort the batch, and
// nothing is rolled back.
type CleanupResult struct {
	Orphans []OrphanAttachment
	Deleted int
	Errors  []string
}

// ValidateAttachments resolves every storage-relative attachment path
// through its item key and tests filesystem existence. It mutates nothing.
func ValidateAttachments(s *session.Session) ([]OrphanAttachment, error) {
	attachments, err := s.DB().StoredAttachments()
	if err != nil {
		return nil, err
	}

	var orphans []OrphanAttachment
	for _, att := range attachments {
		resolved, err := database.ResolveAttachmentPath(&att, s.DataDir())
		if err != nil {
			orphans = append(orphans, OrphanAttachment{
				Attachment: att,
				Reason:     ReasonInvalidPath,
			})
			continue
		}

		if _, err := os.Stat(resolved); err != nil {
			orphans = append(orphans, OrphanAttachment{
				Attachment:   att,
				ResolvedPath: resolved,
				Reason:       ReasonFileNotFound,
			})
		}
	}
	return orphans, nil
}

// DeleteOrphanAttachments removes orphaned attachment rows together with
// their backing item rows. A dry run returns the classified list without
// mutating anything. A live run keeps going past individual failures and
// reports how many deletions succeeded.
func DeleteOrphanAttachments(s *session.Session, dryRun bool) (*CleanupResult, error) {
	orphans, err := ValidateAttachments(s)
	if err != nil {
		return nil, err
	}

	result := &CleanupResult{Orphans: orphans}
	if dryRun {
		return result, nil
	}

	for _, orphan := range orphans {
		itemID := orphan.Attachment.ItemID
		err := s.Mutate(func(db *database.DB) error {
			return db.DeleteItem(itemID)
		})
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("attachment %d: %v", itemID, err))
			continue
		}
		result.Deleted++
	}
	return result, nil
}
