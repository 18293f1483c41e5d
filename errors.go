package capture

import "github.com/pkg/errors"

// Typed error values naming the conditions of the §7 error taxonomy. No
// package of this module returns them: reader returns its own
// ErrUnreadable/ErrShortRead/ErrTimeout, index.Store reports a failed
// snapshot load with a log line and an already-open session with its own
// error, and Store.Query treats a malformed filter as matching nothing.
var (
	// ErrUnreadable names a backing capture file that cannot be opened.
	ErrUnreadable = errors.New("capture: file unreadable")

	// ErrShortRead names a read that returned fewer bytes than desc.Size.
	ErrShortRead = errors.New("capture: short read")

	// ErrTimeout names a read that exceeded its read_timeout budget.
	ErrTimeout = errors.New("capture: read timeout")

	// ErrIndexCorrupt names a snapshot file that fails to parse.
	ErrIndexCorrupt = errors.New("capture: index snapshot corrupt")

	// ErrQueryBadFilter names a feature_filter string that fails to parse.
	ErrQueryBadFilter = errors.New("capture: malformed query filter")

	// ErrNoSession names an operation attempted with no open session.
	ErrNoSession = errors.New("capture: no session open")

	// ErrSessionAlreadyOpen names an Open attempted while a session is active.
	ErrSessionAlreadyOpen = errors.New("capture: a session is already open")
)
