package reactor

import "sync/atomic"

// runState represents the lifecycle state of a Selector.
//
//	Awake (0) -> Running (3)                                [Run()]
//	Awake/Running/Sleeping/Terminating -> Terminated (1)    [Stop()]
//
// The Selector never enters Sleeping (2) or Terminating (4) itself; Stop
// accepts them as source states only.
//
// Values are not contiguous from zero; the ordering is load-bearing only in
// that Terminated and Sleeping must stay distinct from Awake and Running so a
// single CAS can discriminate "never started" from "blocked in poll".
type runState uint64

const (
	stateAwake runState = 0
	stateTerminated runState = 1
	stateSleeping runState = 2
	stateRunning runState = 3
	stateTerminating runState = 4
)

func (s runState) String() string {
	switch s {
	case stateAwake:
		return "awake"
	case stateRunning:
		return "running"
	case stateSleeping:
		return "sleeping"
	case stateTerminating:
		return "terminating"
	case stateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// fastState is a lock-free state machine, cache-line padded to avoid false
// sharing with whatever precedes/follows it in the owning struct.
type fastState struct { //nolint:govet
	_ [64]byte
	v atomic.Uint64
	_ [56]byte
}

func newFastState() *fastState {
	s := &fastState{}
	s.v.Store(uint64(stateAwake))
	return s
}

func (s *fastState) Load() runState { return runState(s.v.Load()) }

func (s *fastState) Store(state runState) { s.v.Store(uint64(state)) }

func (s *fastState) TryTransition(from, to runState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

func (s *fastState) TransitionAny(validFrom []runState, to runState) bool {
	for _, from := range validFrom {
		if s.v.CompareAndSwap(uint64(from), uint64(to)) {
			return true
		}
	}
	return false
}

func (s *fastState) IsTerminal() bool { return s.Load() == stateTerminated }

func (s *fastState) CanAcceptWork() bool {
	switch s.Load() {
	case stateAwake, stateRunning, stateSleeping:
		return true
	default:
		return false
	}
}
