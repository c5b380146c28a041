package chain

// DeploymentState is the version-bits-style deployment state machine
// (spec.md §4.E), generalized from the teacher's single-boolean
// featurebits shape (consensus/featurebits.go) to the standard
// five-state BIP-9 machine.
type DeploymentState byte

const (
	StateDefined DeploymentState = iota
	StateStarted
	StateLockedIn
	StateActive
	StateFailed
)

// Deployment describes one soft-fork candidate signalled through the
// header version bits.
type Deployment struct {
	Name          string
	Bit           uint8
	StartTime     uint64
	TimeoutTime   uint64
	Threshold     uint32 // signals required within Period to lock in
	Period        uint32 // signalling window, in blocks
}

// Deployments lists the version-bits deployments a Chain tracks by
// default. TestDummy mirrors Bitcoin Core's bit-28 "testdummy"
// deployment: it signals and locks in without gating any consensus
// rule, existing solely to exercise the versionbits state machine
// against real chain activity.
var Deployments = []Deployment{
	{
		Name:        "testdummy",
		Bit:         28,
		StartTime:   0,
		TimeoutTime: ^uint64(0),
		Threshold:   1916, // BIP9 mainnet threshold: 95% of a 2016-block period
		Period:      RetargetInterval,
	},
}

// NextDeploymentState advances the state machine one retarget period,
// given the previous period's state, the MTP at the period boundary,
// and how many of the period's blocks signalled the bit.
func NextDeploymentState(prev DeploymentState, boundaryMTP uint64, signalCount uint32, d Deployment) DeploymentState {
	switch prev {
	case StateDefined:
		if boundaryMTP >= d.TimeoutTime {
			return StateFailed
		}
		if boundaryMTP >= d.StartTime {
			return StateStarted
		}
		return StateDefined
	case StateStarted:
		if signalCount >= d.Threshold {
			return StateLockedIn
		}
		if boundaryMTP >= d.TimeoutTime {
			return StateFailed
		}
		return StateStarted
	case StateLockedIn:
		return StateActive
	case StateActive:
		return StateActive
	case StateFailed:
		return StateFailed
	default:
		return prev
	}
}
