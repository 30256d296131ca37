package leave

// =============================================================================
// BALANCE - Allotment minus approved vacation in the current period
// =============================================================================

// Consumed sums the working days of the requests that count against period.
// Requests owned by other users must be filtered out by the caller.
func Consumed(requests []Request, period string) int {
	total := 0
	for _, r := range requests {
		if r.CountsAgainst(period) {
			total += r.WorkingDays
		}
	}
	return total
}

// Balance is annual + carry-over minus consumed days. It may be negative.
func Balance(u User, requests []Request, period string) int {
	return u.Allotment() - Consumed(requests, period)
}

// BalanceSummary breaks a balance down for display.
type BalanceSummary struct {
	UserID        int64  `json:"user_id"`
	Period        string `json:"period"`
	AnnualDays    int    `json:"annual_days"`
	CarryOverDays int    `json:"carry_over_days"`
	Consumed      int    `json:"consumed"`
	Balance       int    `json:"balance"`
}

// Summarize computes the balance summary of u in period.
func Summarize(u User, requests []Request, period string) BalanceSummary {
	consumed := Consumed(requests, period)
	return BalanceSummary{
		UserID:        u.ID,
		Period:        period,
		AnnualDays:    u.AnnualDays,
		CarryOverDays: u.CarryOverDays,
		Consumed:      consumed,
		Balance:       u.Allotment() - consumed,
	}
}
