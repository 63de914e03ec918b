package model

const (
	RaffleClosedEvent    = "raffle.closed"
	RaffleCompletedEvent = "raffle.completed"
	RaffleCancelledEvent = "raffle.cancelled"
	RaffleIntegrityEvent = "raffle.integrity"
)

// RaffleEvent is published to the message broker whenever a raffle changes
// its status or an integrity problem is detected.
type RaffleEvent struct {
	Event              string `json:"event"`
	RaffleID           string `json:"raffle_id"`
	Status             string `json:"status"`
	Reason             string `json:"reason,omitempty"`
	WinningEntryNumber *int   `json:"winning_entry_number,omitempty"`
	WinnerID           string `json:"winner_id,omitempty"`
	Timestamp          int64  `json:"timestamp"`
}
