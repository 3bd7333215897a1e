package market

import "errors"

// ErrInsufficientHistory marks a price series shorter than the minimum
// window of the slowest indicator. Per-symbol only; never aborts a batch.
var ErrInsufficientHistory = errors.New("insufficient price history")
