package relay

import "errors"

// ErrTaskCancelled is wrapped and returned when a collaborator channel the
// relay depends on (the node status watch, the inbound packet queue) is
// closed out from under it. It signals a fatal inability to continue, as
// distinct from a clean Result (Disconnected/Leave) returned from Run.
var ErrTaskCancelled = errors.New("relay: task cancelled")
