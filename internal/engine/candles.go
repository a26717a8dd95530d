package engine

import (
	"time"

	"github.com/florin-app/florin/internal/model"
)

// Candlestick count bounds. Requests outside the range are clamped, not
// rejected.
const (
	minCandles = 1
	maxCandles = 200
)

// candlestickHistory aggregates the ledger into count consecutive buckets of
// the given width, oldest first, ending at the bucket containing now. The
// running balance opens each bucket; high and low are seeded from the open so
// an empty bucket reports open = high = low = close with zero volume.
//
// The scan always walks the full ordered ledger: entries may have been
// inserted at any past timestamp, so arrival order proves nothing.
func (s *Session) candlestickHistory(interval model.Interval, count int, now time.Time) []model.Candlestick {
	if count < minCandles {
		count = minCandles
	}
	if count > maxCandles {
		count = maxCandles
	}

	start := interval.Step(interval.Truncate(now), count-1)
	balance := s.ledger.balanceBefore(start)

	idx := 0
	for idx < len(s.ledger.entries) && s.ledger.entries[idx].Date.Before(start) {
		idx++
	}

	out := make([]model.Candlestick, 0, count)
	bucket := start
	for i := 0; i < count; i++ {
		next := interval.Next(bucket)
		c := model.Candlestick{
			Timestamp: bucket,
			Open:      balance,
			High:      balance,
			Low:       balance,
		}
		for idx < len(s.ledger.entries) && s.ledger.entries[idx].Date.Before(next) {
			e := s.ledger.entries[idx]
			balance = balance.Add(e.Signed())
			c.Volume = c.Volume.Add(e.Amount.Abs())
			if balance.GreaterThan(c.High) {
				c.High = balance
			}
			if balance.LessThan(c.Low) {
				c.Low = balance
			}
			idx++
		}
		c.Close = balance
		out = append(out, c)
		bucket = next
	}
	return out
}
