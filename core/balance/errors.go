package balance

import "errors"

// ErrInvalidInput reports a precondition violation: the optimizer was handed
// consumers or settings it cannot work with. It is distinct from a run that
// completed without a feasible solution, which returns a nil Solution.
var ErrInvalidInput = errors.New("invalid optimizer input")
