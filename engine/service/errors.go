// engine/service/errors.go
package service

import "fmt"

// Custom errors for clear communication to the API layer.
var (
	ErrNodeNotFound   = fmt.Errorf("node not found")
	ErrTeamNotFound   = fmt.Errorf("team not found")
	ErrInvalidSecret  = fmt.Errorf("invalid secret key")
	ErrGameNotActive  = fmt.Errorf("game is not active")
	ErrAlreadySecured = fmt.Errorf("node is already secured by your team")
	ErrNotOwned       = fmt.Errorf("node is not controlled by your team")
	ErrInvalidAction  = fmt.Errorf("invalid action")
	ErrConflict       = fmt.Errorf("node state changed concurrently, please retry")
	ErrNodeExists     = fmt.Errorf("node already exists")
)

// errStale signals that a compare-and-swap inside a transaction observed a
// node whose owner or timer moved underneath the decision. The transaction
// aborts and the caller re-reads and re-decides.
var errStale = fmt.Errorf("stale node state")
