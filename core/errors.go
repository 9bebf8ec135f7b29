package core

import "errors"

// ErrModelCallLimit is returned once an agent exceeds its model call budget.
var ErrModelCallLimit = errors.New("exceeded max model calls")
