package common

import "fmt"

func RedisKeyRaffleResult(raffleID string) string {
	return fmt.Sprintf("raffleresult:%s", raffleID)
}
