package chain

import "github.com/rubin-dev/cashcore/consensus"

// EventKind distinguishes the four chain events spec.md §6 defines.
type EventKind int

const (
	EventConnect EventKind = iota
	EventDisconnect
	EventReset
	EventTip
)

// Event is delivered synchronously with the state transition that
// produced it; listeners must not re-enter the chain lock (spec.md §5).
type Event struct {
	Kind  EventKind
	Entry *Entry
	Block *consensus.Block
	View  *CoinView
}

// Listener receives chain events.
type Listener func(Event)
