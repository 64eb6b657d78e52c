package contracts

// SyncMessage is one unit the sync protocol's transport would carry,
// per spec.md §6. Payload is opaque to this package.
type SyncMessage struct {
	SequenceNumber int64
	Payload        any
}

// AnimationHint tells a client renderer how big a jump a message
// represents, matching spec.md §6's thresholds.
type AnimationHint string

const (
	HintStep AnimationHint = "step" // |Δ| <= 1
	HintJump AnimationHint = "jump" // |Δ| <= 10
	HintSnap AnimationHint = "snap" // |Δ| > 10
)

// ClassifyHint classifies a step delta (always non-negative in this
// system, but the function is defined over int for generality).
func ClassifyHint(delta int) AnimationHint {
	if delta < 0 {
		delta = -delta
	}
	switch {
	case delta <= 1:
		return HintStep
	case delta <= 10:
		return HintJump
	default:
		return HintSnap
	}
}

// SeqGate implements the drop/resync/apply decision for one client
// connection's monotonic sequence numbers.
type SeqGate struct {
	lastReceivedSeq int64
	gapThreshold    int64
}

// Decision is the outcome SeqGate.Observe reaches for one message.
type Decision string

const (
	DecisionDrop   Decision = "drop"   // seq <= lastReceivedSeq
	DecisionResync Decision = "resync" // seq > lastReceivedSeq + gapThreshold
	DecisionApply  Decision = "apply"  // otherwise
)

// NewSeqGate returns a gate with the default gap threshold of 5.
func NewSeqGate() *SeqGate { return &SeqGate{gapThreshold: 5} }

// NewSeqGateWithThreshold returns a gate with a caller-chosen threshold.
func NewSeqGateWithThreshold(gapThreshold int64) *SeqGate {
	return &SeqGate{gapThreshold: gapThreshold}
}

// Observe classifies msg against the gate's state and, for Apply/Resync,
// advances lastReceivedSeq.
func (g *SeqGate) Observe(msg SyncMessage) Decision {
	switch {
	case msg.SequenceNumber <= g.lastReceivedSeq:
		return DecisionDrop
	case msg.SequenceNumber > g.lastReceivedSeq+g.gapThreshold:
		g.lastReceivedSeq = msg.SequenceNumber
		return DecisionResync
	default:
		g.lastReceivedSeq = msg.SequenceNumber
		return DecisionApply
	}
}

// RequestDedup is a FIFO-evicting set of recently seen request ids,
// default capacity 100 per spec.md §6.
type RequestDedup struct {
	capacity int
	order    []string
	seen     map[string]bool
}

// NewRequestDedup returns a dedup set with the default capacity of 100.
func NewRequestDedup() *RequestDedup { return NewRequestDedupWithCapacity(100) }

func NewRequestDedupWithCapacity(capacity int) *RequestDedup {
	return &RequestDedup{capacity: capacity, seen: map[string]bool{}}
}

// SeenBefore reports whether id was already recorded, and records it
// if not — evicting the oldest id first if the set is at capacity.
func (d *RequestDedup) SeenBefore(id string) bool {
	if d.seen[id] {
		return true
	}
	if len(d.order) >= d.capacity {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, oldest)
	}
	d.order = append(d.order, id)
	d.seen[id] = true
	return false
}
