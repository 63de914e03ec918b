package model

type Raffle struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	TotalEntries       int    `json:"total_entries"`
	SoldEntries        int    `json:"sold_entries"`
	PricePerEntry      string `json:"price_per_entry"`
	MaxEntriesPerUser  int    `json:"max_entries_per_user"`
	Status             string `json:"status"`
	Deadline           string `json:"deadline,omitempty"`
	ClosedAt           string `json:"closed_at,omitempty"`
	CloseReason        string `json:"close_reason,omitempty"`
	DrawAt             string `json:"draw_at,omitempty"`
	CompletedAt        string `json:"completed_at,omitempty"`
	WinningEntryNumber *int   `json:"winning_entry_number,omitempty"`
	WinnerID           string `json:"winner_id,omitempty"`
	CreatedBy          string `json:"created_by"`
	CreatedAt          string `json:"created_at"`
}

type Entry struct {
	EntryNumber int    `json:"entry_number"`
	OwnerID     string `json:"owner_id"`
	CreatedAt   string `json:"created_at"`
	CreatedAtMs int64  `json:"created_at_ms"`
	IsWinning   bool   `json:"is_winning"`
}

type DrawResult struct {
	RaffleID           string         `json:"raffle_id"`
	Status             string         `json:"status"`
	AlreadyDrawn       bool           `json:"already_drawn"`
	WinningEntryNumber *int           `json:"winning_entry_number,omitempty"`
	WinnerID           string         `json:"winner_id,omitempty"`
	TotalEntries       int            `json:"total_entries"`
	Formula            string         `json:"formula,omitempty"`
	Seed               string         `json:"seed,omitempty"`
	Proof              map[string]any `json:"proof,omitempty"`
}

type WalletTransaction struct {
	ID        string `json:"id"`
	RaffleID  string `json:"raffle_id,omitempty"`
	Amount    string `json:"amount"`
	Reason    string `json:"reason"`
	CreatedAt string `json:"created_at"`
}
