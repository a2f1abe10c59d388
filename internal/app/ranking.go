package app

import (
	"bytes"
	"sort"
	"time"

	"github.com/devpantoja/vai-me-bancar-back/internal/domain"
	"github.com/shopspring/decimal"
)

// DayWindow returns [start of day, start of next day) for now in loc.
func DayWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// RankDonations keeps the paid donations created inside [from, to) and orders
// them by amount descending, then creation time, then id.
func RankDonations(donations []domain.Donation, from, to time.Time) domain.DailyRanking {
	ranked := make([]domain.Donation, 0, len(donations))
	for _, d := range donations {
		if d.Status != domain.DonationPaid {
			continue
		}
		if d.CreatedAt.Before(from) || !d.CreatedAt.Before(to) {
			continue
		}
		ranked = append(ranked, d)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if c := a.Amount.Cmp(b.Amount); c != 0 {
			return c > 0
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})

	result := domain.DailyRanking{
		Ranking:          ranked,
		TotalDonorsToday: len(ranked),
		TotalAmountToday: decimal.Zero,
	}
	for _, d := range ranked {
		result.TotalAmountToday = result.TotalAmountToday.Add(d.Amount)
	}
	if len(ranked) > 0 {
		top := ranked[0]
		lowest := ranked[len(ranked)-1]
		result.TopDonor = &top
		result.LowestDonor = &lowest
	}
	return result
}
