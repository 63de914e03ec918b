package model

type CreateRaffleRequest struct {
	Title             string `json:"title"`
	TotalEntries      int    `json:"total_entries"`
	PricePerEntry     string `json:"price_per_entry"`
	MaxEntriesPerUser int    `json:"max_entries_per_user"`

	// Deadline is formatted in RFC3339, empty means no deadline.
	Deadline string `json:"deadline"`
}

type CreateRaffleResponse struct {
	ID string `json:"id"`
}

type GetRaffleRequest struct {
	RaffleID string `json:"raffle_id"`
}

type GetRaffleResponse struct {
	Raffle Raffle `json:"raffle"`
}

type GetRafflesRequest struct {
	Status string `json:"status"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

type GetRafflesResponse struct {
	Raffles []Raffle `json:"raffles"`
}

type AllocateRequest struct {
	RaffleID string `json:"raffle_id"`
	Quantity int    `json:"quantity"`
}

type AllocateResponse struct {
	RaffleID     string `json:"raffle_id"`
	EntryNumbers []int  `json:"entry_numbers"`
	SoldEntries  int    `json:"sold_entries"`
	Status       string `json:"status"`
}

type CloseRaffleRequest struct {
	RaffleID string `json:"raffle_id"`
}

type CloseRaffleResponse struct{}

type CancelRaffleRequest struct {
	RaffleID string `json:"raffle_id"`
}

type CancelRaffleResponse struct{}

type RequestDrawRequest struct {
	RaffleID string `json:"raffle_id"`
}

type RequestDrawResponse struct {
	Result DrawResult `json:"result"`
}

type VerifyRequest struct {
	RaffleID string `json:"raffle_id"`
}

type VerifyResponse struct {
	RaffleID         string `json:"raffle_id"`
	Valid            bool   `json:"valid"`
	RecomputedIndex  int    `json:"recomputed_index"`
	RecomputedWinner string `json:"recomputed_winner"`
	Reason           string `json:"reason,omitempty"`
}

type GetEntriesRequest struct {
	RaffleID string `json:"raffle_id"`
	Offset   int    `json:"offset"`
	Limit    int    `json:"limit"`
}

type GetEntriesResponse struct {
	Entries []Entry `json:"entries"`
}

type GetMyEntriesRequest struct {
	RaffleID string `json:"raffle_id"`
}

type GetMyEntriesResponse struct {
	Entries []Entry `json:"entries"`
}
