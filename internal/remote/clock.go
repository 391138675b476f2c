package remote

import "time"

// nowFunc is a seam for tests; production code always uses time.Now.
// The expression engine (§4.1 "Determinism") is forbidden from touching
// the clock, but the remote client legitimately needs it for TOTP codes
// and RPC timeouts.
var nowFunc = time.Now
