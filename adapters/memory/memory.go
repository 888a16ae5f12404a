package memory

import "github.com/pathtracker/pathtracker/ports"

// ErrNotFound aliases the shared store sentinel.
var ErrNotFound = ports.ErrNotFound
