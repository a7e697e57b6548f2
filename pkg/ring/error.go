package ring

import "github.com/brickingsoft/errors"

var (
	ErrSetup          = errors.Define("ring setup failed")
	ErrInvalidFlags   = errors.Define("invalid setup flags")
	ErrInvalidEntries = errors.Define("invalid queue entries")
)

func IsSetupError(err error) bool {
	return errors.Is(err, ErrSetup)
}
