package model

// DefaultColourMultiplier is the quota cost of one colour page relative to a monochrome page.
const DefaultColourMultiplier = 3

// PrintRequest is everything needed to transmit one processed job.
type PrintRequest struct {
	Job              Job
	Queue            string
	File             string
	Destination      string
	PageCount        int
	ColourPageCount  int
	ColourMultiplier int
}

// QuotaCost is the number of quota units deducted if the request prints.
func (r *PrintRequest) QuotaCost() int {
	multiplier := r.ColourMultiplier
	if multiplier <= 0 {
		multiplier = DefaultColourMultiplier
	}
	return (r.PageCount - r.ColourPageCount) + r.ColourPageCount*multiplier
}

// HasSufficientQuota reports whether the remaining quota strictly exceeds the cost.
func (r *PrintRequest) HasSufficientQuota(remaining int) bool {
	return r.QuotaCost() < remaining
}
