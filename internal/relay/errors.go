package relay

import "errors"

// ErrActuationFailed wraps failures delivering a signal to hardware.
var ErrActuationFailed = errors.New("relay: actuation failed")
