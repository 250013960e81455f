package batch

// ItemStatus is the processing outcome of a single bulk item.
type ItemStatus string

// Bulk item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of writing one document in a bulk operation.
type Result struct {
	id      string
	status  ItemStatus
	message string
}

// NewOK creates a successful item result.
func NewOK(id string) Result { return Result{id: id, status: StatusOK} }

// NewError creates a failed item result with the backend's failure message.
func NewError(id, message string) Result {
	return Result{id: id, status: StatusError, message: message}
}

// ID returns the document id.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Message returns the failure message, empty on success.
func (r Result) Message() string { return r.message }

// Failed reports whether the item failed.
func (r Result) Failed() bool { return r.status == StatusError }
