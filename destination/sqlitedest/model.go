package sqlitedest

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// loadModel records one completed load package, the destination-side
// counterpart of dlt's internal loads history table.
type loadModel struct {
	bun.BaseModel `bun:"table:_loadexec_loads"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	LoadID      string    `bun:"load_id,notnull"`
	CompletedAt time.Time `bun:"completed_at,nullzero,notnull,default:current_timestamp"`
}

func newLoadModel(loadID string) *loadModel {
	return &loadModel{
		ID:          uuid.New(),
		LoadID:      loadID,
		CompletedAt: time.Now(),
	}
}
