package broadcast

import "errors"

// ErrHubClosed is returned for any operation that arrives after Shutdown.
var ErrHubClosed = errors.New("broadcast hub is closed")
