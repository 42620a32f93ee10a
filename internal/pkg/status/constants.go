package status

// Status represents one batch item's processing state
type Status int

const (
	// Pending - not started yet
	Pending Status = iota + 1
	// Uploading - file is moving to the blob store
	Uploading
	// Processing - remote segmentation in progress
	Processing
	// Done - final step, segments persisted
	Done
	// Failed - final step, item failed, siblings continue
	Failed
)

var (
	statusName = map[Status]string{Pending: "PENDING", Uploading: "UPLOADING",
		Processing: "PROCESSING", Done: "DONE", Failed: "FAILED"}
	nameStatus = map[string]Status{"PENDING": Pending, "UPLOADING": Uploading,
		"PROCESSING": Processing, "DONE": Done, "FAILED": Failed}
)

func (st Status) String() string {
	return statusName[st]
}

// From returns status obj from string
func From(st string) Status {
	return nameStatus[st]
}
