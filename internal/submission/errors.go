package submission

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"

	"google.golang.org/api/googleapi"
)

// SinkError wraps the failure of one row write. Row is the zero-based
// position of the row within the batch.
type SinkError struct {
	Row int
	Err error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink append row %d: %v", e.Row, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// PartialFailureError reports a batch that stopped partway. Completed rows
// were written to the sink before the failure and are not retracted; the
// whole batch is back in the ledger.
type PartialFailureError struct {
	Completed int
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("submission stopped after %d rows: %v", e.Completed, e.Err)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err looks like a transient failure of the
// sink: network timeouts, refused or reset connections, and Google API
// rate limits or server errors.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}

	return false
}
