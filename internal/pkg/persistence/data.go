package persistence

import (
	"database/sql"
	"time"
)

// AudioUpload table - one row per uploaded audio file.
// Segments keeps the raw segment list JSON, NULL until extraction succeeds.
// A repeated extraction overwrites it wholesale.
type AudioUpload struct {
	ID         int64
	OwnerID    int64
	Filename   string
	StorageKey string
	Segments   sql.NullString
	Created    time.Time
}
