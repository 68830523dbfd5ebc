package interceptor

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrMaliciousContent  = errors.New("malicious content detected")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrIdentifierBlocked = errors.New("identifier temporarily blocked")
)

// Rejection is returned by GuardedStore when the guard refuses an operation.
// It unwraps to one of the sentinel errors above.
type Rejection struct {
	Decision Decision
}

func (r *Rejection) Error() string {
	if len(r.Decision.Errors) == 0 {
		return r.Decision.Err.Error()
	}
	fields := make([]string, 0, len(r.Decision.Errors))
	for f := range r.Decision.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Sprintf("%v: %s", r.Decision.Err, strings.Join(fields, ", "))
}

func (r *Rejection) Unwrap() error { return r.Decision.Err }
