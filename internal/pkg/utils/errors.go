package utils

// Pipeline failure kinds. All of them are per-file errors: the batch
// orchestrator records the reason and moves to the next item, none of
// them aborts the whole batch.

// ErrStorageWrite indicates a failed blob store write.
// The relay inserts no DB row when it sees this error.
type ErrStorageWrite struct {
	err error
}

// NewErrStorageWrite creates new error
func NewErrStorageWrite(err error) error {
	return &ErrStorageWrite{err: err}
}

func (e *ErrStorageWrite) Error() string {
	return "storage write error: " + e.err.Error()
}

func (e *ErrStorageWrite) Unwrap() error {
	return e.err
}

// ErrUploadInit indicates a failed resumable upload initiation -
// non-success response or no session URL header.
type ErrUploadInit struct {
	err error
}

// NewErrUploadInit creates new error
func NewErrUploadInit(err error) error {
	return &ErrUploadInit{err: err}
}

func (e *ErrUploadInit) Error() string {
	return "upload init error: " + e.err.Error()
}

func (e *ErrUploadInit) Unwrap() error {
	return e.err
}

// ErrUploadTransfer indicates a failed byte transfer to the media service
type ErrUploadTransfer struct {
	err error
}

// NewErrUploadTransfer creates new error
func NewErrUploadTransfer(err error) error {
	return &ErrUploadTransfer{err: err}
}

func (e *ErrUploadTransfer) Error() string {
	return "upload transfer error: " + e.err.Error()
}

func (e *ErrUploadTransfer) Unwrap() error {
	return e.err
}

// ErrProcessingTimeout indicates the remote file did not become active
// within the poll attempt budget. LastState keeps the last observed state.
type ErrProcessingTimeout struct {
	LastState string
}

// NewErrProcessingTimeout creates new error
func NewErrProcessingTimeout(lastState string) error {
	return &ErrProcessingTimeout{LastState: lastState}
}

func (e *ErrProcessingTimeout) Error() string {
	return "processing timeout, last state: " + e.LastState
}

// ErrGeneration indicates a failed generation call
type ErrGeneration struct {
	err error
}

// NewErrGeneration creates new error
func NewErrGeneration(err error) error {
	return &ErrGeneration{err: err}
}

func (e *ErrGeneration) Error() string {
	return "generation error: " + e.err.Error()
}

func (e *ErrGeneration) Unwrap() error {
	return e.err
}

// ErrParse indicates unparseable model output.
// Raw keeps the full model text for diagnostics.
type ErrParse struct {
	Raw string
	err error
}

// NewErrParse creates new error
func NewErrParse(err error, raw string) error {
	return &ErrParse{err: err, Raw: raw}
}

func (e *ErrParse) Error() string {
	return "parse error: " + e.err.Error()
}

func (e *ErrParse) Unwrap() error {
	return e.err
}

// ErrValidation indicates model output of the wrong shape
type ErrValidation struct {
	msg string
}

// NewErrValidation creates new error
func NewErrValidation(msg string) error {
	return &ErrValidation{msg: msg}
}

func (e *ErrValidation) Error() string {
	return "validation error: " + e.msg
}
