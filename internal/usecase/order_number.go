package usecase

import (
	"fmt"
	"time"
)

// GenerateOrderNumber returns a human-readable label of the form YYMMDD-XXXXX,
// where the suffix is the last five digits of the millisecond clock. It is a
// display label only; collisions are possible and the store-assigned order id
// stays the real key.
func GenerateOrderNumber() string {
	now := time.Now()
	return fmt.Sprintf("%s-%05d", now.Format("060102"), now.UnixMilli()%100000)
}
