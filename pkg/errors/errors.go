package errors

// ErrorCode represents a specific error code in the system.
type ErrorCode string

const (
	// InvalidOrderError represents a malformed order submission: price or
	// quantity not positive, or an unknown side.
	InvalidOrderError ErrorCode = "invalid_order_error"
	// NotFoundError represents an operation referencing an order id that is
	// not on the book.
	NotFoundError ErrorCode = "not_found_error"
	// UnauthorizedError represents a cancel or amend attempted by a client
	// that does not own the order.
	UnauthorizedError ErrorCode = "unauthorized_error"
	// TaskTimeoutError represents an analytics task that exceeded its
	// execution budget.
	TaskTimeoutError ErrorCode = "task_timeout_error"

	// EventPublishError represents a failure publishing an engine event to
	// the outbound stream.
	EventPublishError ErrorCode = "event_publish_error"
	// SnapshotStoreError represents a failure persisting or loading a book
	// snapshot.
	SnapshotStoreError ErrorCode = "snapshot_store_error"
	// RepositoryError represents a failure in the order/trade repository.
	RepositoryError ErrorCode = "repository_error"
)
