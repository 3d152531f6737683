// Package analytics summarizes the local exchange archive.
package analytics

import (
	"sort"
	"time"
	"unicode/utf8"

	"assistant-dashboard/internal/storage"
)

// DailyStats covers one calendar day in the given location.
type DailyStats struct {
	Date          string `json:"date"`
	Exchanges     int    `json:"exchanges"`
	PromptChars   int    `json:"prompt_chars"`
	ResponseChars int    `json:"response_chars"`
}

// AvgResponseChars is zero for a day without exchanges.
func (s DailyStats) AvgResponseChars() int {
	if s.Exchanges == 0 {
		return 0
	}
	return s.ResponseChars / s.Exchanges
}

// AnalyzeDay counts exchanges whose timestamp falls on targetDate.
func AnalyzeDay(exchanges []storage.Exchange, targetDate time.Time) DailyStats {
	loc := targetDate.Location()
	start := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)

	stats := DailyStats{Date: start.Format("2006-01-02")}
	for _, ex := range exchanges {
		if ex.Timestamp.Before(start) || !ex.Timestamp.Before(end) {
			continue
		}
		stats.add(ex)
	}
	return stats
}

// ByDay groups the archive per calendar day, oldest first.
func ByDay(exchanges []storage.Exchange, loc *time.Location) []DailyStats {
	days := make(map[string]*DailyStats)
	for _, ex := range exchanges {
		key := ex.Timestamp.In(loc).Format("2006-01-02")
		s, ok := days[key]
		if !ok {
			s = &DailyStats{Date: key}
			days[key] = s
		}
		s.add(ex)
	}
	out := make([]DailyStats, 0, len(days))
	for _, s := range days {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (s *DailyStats) add(ex storage.Exchange) {
	s.Exchanges++
	s.PromptChars += utf8.RuneCountInString(ex.UserMessage)
	s.ResponseChars += utf8.RuneCountInString(ex.AssistantResponse)
}
