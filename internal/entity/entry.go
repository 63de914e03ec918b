package entity

// Entry is a numbered ticket of a raffle. Entries are never updated except
// the IsWinning flag of the winning entry.
type Entry struct {
	SnowFlakeBase

	RaffleID string `gorm:"uniqueIndex:idx_entries_raffle_id_entry_number;index:idx_entries_raffle_id_owner_id"`
	Raffle   Raffle `gorm:"foreignKey:RaffleID"`

	OwnerID string `gorm:"index:idx_entries_raffle_id_owner_id"`
	Owner   User   `gorm:"foreignKey:OwnerID"`

	EntryNumber int `gorm:"uniqueIndex:idx_entries_raffle_id_entry_number"`
	IsWinning   bool
}
