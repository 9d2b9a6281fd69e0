package gateway

import (
	"errors"
	"fmt"

	"github.com/botworks/zohobridge/internal/util"
)

// ErrRetriesExhausted means every retry attempt was consumed without a
// successful response.
var ErrRetriesExhausted = errors.New("upstream retries exhausted")

// UpstreamError reports a non-auth, non-rate-limit HTTP failure after
// the retry budget is spent. Status is 0 for transport-level failures.
type UpstreamError struct {
	Endpoint string
	Status   int
	Body     []byte
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream call %s failed: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("upstream call %s failed: status %d: %s", e.Endpoint, e.Status, util.TruncateBytes(e.Body))
}

func (e *UpstreamError) Unwrap() error { return e.Err }
