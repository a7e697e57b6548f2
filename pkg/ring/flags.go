package ring

import (
	"strings"

	"github.com/brickingsoft/errors"
)

// io_uring_setup flags.
const (
	SetupIOPoll uint32 = 1 << iota
	SetupSQPoll
	SetupSQAff
	SetupCQSize
	SetupClamp
	SetupAttachWQ
	SetupRDisabled
	SetupSubmitAll
	SetupCoopTaskrun
	SetupTaskrunFlag
	SetupSQE128
	SetupCQE32
	SetupSingleIssuer
	SetupDeferTaskrun
)

// Big entries change the slot layout, and CQSize/AttachWQ/SQAff need parameters
// the backend does not carry.
const unsupportedSetupFlags = SetupSQE128 | SetupCQE32 | SetupCQSize | SetupAttachWQ | SetupSQAff | SetupRDisabled

var setupFlagNames = map[string]uint32{
	"iopoll":        SetupIOPoll,
	"sqpoll":        SetupSQPoll,
	"clamp":         SetupClamp,
	"submit_all":    SetupSubmitAll,
	"coop_taskrun":  SetupCoopTaskrun,
	"taskrun_flag":  SetupTaskrunFlag,
	"single_issuer": SetupSingleIssuer,
	"defer_taskrun": SetupDeferTaskrun,
}

// ParseSetupFlags converts names such as "sqpoll" or "coop_taskrun" into setup flags.
func ParseSetupFlags(names ...string) (uint32, error) {
	flags := uint32(0)
	for _, name := range names {
		flag, ok := setupFlagNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, errors.From(ErrInvalidFlags, errors.WithWrap(errors.New("unknown setup flag "+name)))
		}
		flags |= flag
	}
	return flags, nil
}

// Submission entry flags, passed as the trailing flags byte of every operation.
const (
	SQEFixedFile uint8 = 1 << iota
	SQEIODrain
	SQEIOLink
	SQEIOHardlink
	SQEAsync
	SQEBufferSelect
	SQECQESkipSuccess
)
