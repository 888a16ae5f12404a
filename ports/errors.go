package ports

import "errors"

// ErrNotFound is returned by stores when no row matches. Adapters return
// it (or wrap it) so services can map lookups to the NOT_FOUND taxonomy
// without knowing which store implementation is behind the port.
var ErrNotFound = errors.New("not found")
