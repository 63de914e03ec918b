package model

type GetBalanceRequest struct{}

type GetBalanceResponse struct {
	Balance string `json:"balance"`
}

type DepositRequest struct {
	UserID string `json:"user_id"`
	Amount string `json:"amount"`
}

type DepositResponse struct {
	Balance string `json:"balance"`
}

type GetTransactionsRequest struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

type GetTransactionsResponse struct {
	Transactions []WalletTransaction `json:"transactions"`
}
