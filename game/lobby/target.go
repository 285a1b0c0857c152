package lobby

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrLobbyNotFound = errors.New("lobby not found")
	ErrInvalidTarget = errors.New("invalid join target")
)

// newTarget is the selector that asks for a fresh lobby.
const newTarget = "new"

// Target selects which lobby a connection joins.
type Target struct {
	New bool
	ID  int
}

// NewLobbyTarget asks for a freshly created lobby.
func NewLobbyTarget() Target {
	return Target{New: true}
}

// ExistingTarget names the lobby in slot id.
func ExistingTarget(id int) Target {
	return Target{ID: id}
}

// ParseTarget parses a join selector: the literal "new" or a lobby id in
// base 16 (either case, no prefix).
func ParseTarget(s string) (Target, error) {
	if s == newTarget {
		return NewLobbyTarget(), nil
	}
	id, err := strconv.ParseUint(s, 16, 31)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %q", ErrInvalidTarget, s)
	}
	return ExistingTarget(int(id)), nil
}

// String renders the target the way clients send it.
func (t Target) String() string {
	if t.New {
		return newTarget
	}
	return FormatID(t.ID)
}

// FormatID renders a lobby id in the lowercase hex form clients share.
func FormatID(id int) string {
	return strconv.FormatInt(int64(id), 16)
}
