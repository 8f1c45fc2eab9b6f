package quota

import "errors"

// ErrQuotaExceeded indicates the free monthly allowance is used up.
var ErrQuotaExceeded = errors.New("quota: monthly usage limit reached")
