package errors

import (
	goerrors "errors"
	"fmt"
	"net/http"
)

var (
	// ErrStoreUnavailable is transient: the caller should keep the unsent
	// draft and allow a manual retry.
	ErrStoreUnavailable = fmt.Errorf("store unavailable")
	// ErrRoomConflict is expected under concurrent room creation and is
	// resolved internally by re-reading the winner's room.
	ErrRoomConflict = fmt.Errorf("support room already exists for user")
	// ErrSubscriptionDropped tells the caller to resubscribe and reconcile
	// with a message list from the last seen cursor. It is not data loss.
	ErrSubscriptionDropped = fmt.Errorf("subscription dropped")
	ErrRoomNotFound        = fmt.Errorf("room not found")
	ErrEmptyContent        = fmt.Errorf("message content is empty")
	ErrContentTooLong      = fmt.Errorf("message content exceeds the maximum length")
	ErrWorkerPanic         = fmt.Errorf("worker panic")
)

// HTTPStatus maps the error taxonomy to transport status codes.
// Unknown errors are treated as transient store failures: the client
// keeps its draft and retries.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case goerrors.Is(err, ErrEmptyContent), goerrors.Is(err, ErrContentTooLong):
		return http.StatusBadRequest
	case goerrors.Is(err, ErrRoomNotFound):
		return http.StatusNotFound
	case goerrors.Is(err, ErrRoomConflict):
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}
