package capability

// ViolationError is the panic value raised when an operation absent from the
// Set is requested. It marks a logic defect, never a runtime condition.
type ViolationError struct {
	Op Op
}

func (e *ViolationError) Error() string {
	return "capability: operation " + e.Op.String() + " is not supported by the running kernel"
}

// Require panics with a *ViolationError unless s supports op.
func (s Set) Require(op Op) {
	if !s.Supports(op) {
		panic(&ViolationError{Op: op})
	}
}
