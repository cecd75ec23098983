package event

// EventType discriminator for event payloads
type EventType int32

const (
	EventTypeUnknown EventType = iota
	EventTypePoolCreate
	EventTypeMemberUnitsUpdate
	EventTypeInstantDistribute
	EventTypeFlowDistribute
	EventTypePoolConnect
	EventTypePoolDisconnect
	EventTypeClaim
	EventTypeDeposit
	EventTypeWithdrawal
	EventTypeSolvencyStatusUpdate

	// Derived by the core, never ingested.
	EventTypeFlowsLiquidated
)

// EventEnvelope wraps every event in the log
type EventEnvelope struct {
	// Global monotonic sequence assigned by core
	Sequence int64

	// Stable idempotency key from upstream
	IdempotencyKey string

	// Event type discriminator
	EventType EventType

	// Pool context (nullable for global events)
	PoolID *string

	// Versioned input timestamp, unix seconds (NOT wall-clock)
	Timestamp int64

	// Upstream sequence for ordering validation
	SourceSequence int64

	// JSON-encoded event-specific data
	Payload []byte

	// SHA-256 of state AFTER applying this event
	StateHash [32]byte

	// Previous event's state hash (chain integrity)
	PrevHash [32]byte
}

// Event is the interface all event payloads must implement
type Event interface {
	// IdempotencyKey returns the stable dedup key
	IdempotencyKey() string

	// EventType returns the discriminator
	EventType() EventType

	// PoolID returns the pool context (nil for global events)
	PoolID() *string

	// SourceSequence returns upstream ordering key
	SourceSequence() int64
}

func (et EventType) String() string {
	switch et {
	case EventTypePoolCreate:
		return "PoolCreate"
	case EventTypeMemberUnitsUpdate:
		return "MemberUnitsUpdate"
	case EventTypeInstantDistribute:
		return "InstantDistribute"
	case EventTypeFlowDistribute:
		return "FlowDistribute"
	case EventTypePoolConnect:
		return "PoolConnect"
	case EventTypePoolDisconnect:
		return "PoolDisconnect"
	case EventTypeClaim:
		return "Claim"
	case EventTypeDeposit:
		return "Deposit"
	case EventTypeWithdrawal:
		return "Withdrawal"
	case EventTypeSolvencyStatusUpdate:
		return "SolvencyStatusUpdate"
	case EventTypeFlowsLiquidated:
		return "FlowsLiquidated"
	default:
		return "Unknown"
	}
}
