package repository

import "errors"

// ErrCorrupt is returned by the decoding helpers when persisted data cannot be
// understood. Load implementations translate it into an empty mapping so a
// damaged install degrades to "no history" instead of refusing to start.
var ErrCorrupt = errors.New("repository: stored data is corrupt")
