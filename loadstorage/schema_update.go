package loadstorage

import (
	"github.com/loadqueue/loadexec/schema"
)

// BeginSchemaUpdate returns the staged schema update for loadID, or nil if
// no update is currently staged — either because the package never had
// one, or because a prior run already committed it.
//
// Implementations must tolerate repeated calls: the staged artifact is
// only cleared by CommitSchemaUpdate, so a crash between BeginSchemaUpdate
// and CommitSchemaUpdate simply results in the update being recomputed and
// reapplied on the next run, which is safe because InitializeStorage and
// UpdateStorageSchema are idempotent.
func (s *Storage) BeginSchemaUpdate(loadID string) (schema.Update, error) {
	return schema.LoadUpdate(s.schemaUpdatePath(loadID))
}

// CommitSchemaUpdate records the subset of the staged update the
// destination actually applied and clears the staged artifact: the
// artifact exists on disk iff an update is staged but not yet committed.
func (s *Storage) CommitSchemaUpdate(loadID string, applied schema.Update) error {
	if err := schema.SaveUpdate(s.appliedUpdatePath(loadID), applied); err != nil {
		return err
	}
	return removeIfExists(s.schemaUpdatePath(loadID))
}
