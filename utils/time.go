package utils

import "time"

// ToIST renders a timestamp in the shop's timezone. Receipts and reminder
// emails always show local time regardless of the server clock.
func ToIST(t time.Time) time.Time {
	ist, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return t
	}
	return t.In(ist)
}
