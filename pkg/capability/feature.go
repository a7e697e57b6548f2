package capability

import "strconv"

// Feature is a behavioral feature bit reported in io_uring_params.features.
// The value is the bit position.
type Feature uint8

const (
	FeatSingleMmap Feature = iota
	FeatNoDrop
	FeatSubmitStable
	FeatRWCurPos
	FeatCurPersonality
	FeatFastPoll
	FeatPoll32Bits
	FeatSQPollNonfixed
	FeatExtArg
	FeatNativeWorkers
	FeatRsrcTags
	FeatCQESkip
	FeatLinkedFile
	FeatRegRegRing
	FeatRecvSendBundle
	FeatMinTimeout
	featLast
)

var featureNames = [...]string{
	FeatSingleMmap:     "single_mmap",
	FeatNoDrop:         "nodrop",
	FeatSubmitStable:   "submit_stable",
	FeatRWCurPos:       "rw_cur_pos",
	FeatCurPersonality: "cur_personality",
	FeatFastPoll:       "fast_poll",
	FeatPoll32Bits:     "poll_32bits",
	FeatSQPollNonfixed: "sqpoll_nonfixed",
	FeatExtArg:         "ext_arg",
	FeatNativeWorkers:  "native_workers",
	FeatRsrcTags:       "rsrc_tags",
	FeatCQESkip:        "cqe_skip",
	FeatLinkedFile:     "linked_file",
	FeatRegRegRing:     "reg_reg_ring",
	FeatRecvSendBundle: "recvsend_bundle",
	FeatMinTimeout:     "min_timeout",
}

// Mask returns the IORING_FEAT_* bit of f.
func (f Feature) Mask() uint32 {
	return 1 << f
}

func (f Feature) Known() bool {
	return f < featLast
}

func (f Feature) String() string {
	if f.Known() {
		return featureNames[f]
	}
	return "feature(" + strconv.Itoa(int(f)) + ")"
}

// FeaturesFromMask decodes an io_uring_params.features word. Unknown bits are dropped.
func FeaturesFromMask(mask uint32) []Feature {
	features := make([]Feature, 0, featLast)
	for f := FeatSingleMmap; f < featLast; f++ {
		if mask&f.Mask() != 0 {
			features = append(features, f)
		}
	}
	return features
}
