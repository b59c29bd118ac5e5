package tolerance

import "errors"

// ErrInvalidPolicy reports an unusable tolerance policy.
var ErrInvalidPolicy = errors.New("invalid tolerance policy")
