package runtime

import "errors"

// ErrDatasetCapacity is returned when all dataset slots are in use.
var ErrDatasetCapacity = errors.New("runtime: open dataset limit reached")
