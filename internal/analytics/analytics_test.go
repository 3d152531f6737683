package analytics

import (
	"testing"
	"time"

	"assistant-dashboard/internal/storage"
)

func TestAnalyzeDay(t *testing.T) {
	day := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	exchanges := []storage.Exchange{
		{Timestamp: day.Add(-24 * time.Hour), UserMessage: "old", AssistantResponse: "x"},
		{Timestamp: time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), UserMessage: "hi", AssistantResponse: "hello"},
		{Timestamp: time.Date(2026, 5, 10, 23, 59, 59, 0, time.UTC), UserMessage: "héllo", AssistantResponse: "wörld!"},
		{Timestamp: time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC), UserMessage: "next", AssistantResponse: "day"},
	}

	s := AnalyzeDay(exchanges, day)

	if s.Date != "2026-05-10" {
		t.Fatalf("unexpected date %s", s.Date)
	}
	if s.Exchanges != 2 {
		t.Fatalf("want 2 exchanges, got %d", s.Exchanges)
	}
	if s.PromptChars != 7 || s.ResponseChars != 11 {
		t.Fatalf("unexpected char counts: %+v", s)
	}
	if s.AvgResponseChars() != 5 {
		t.Fatalf("unexpected average %d", s.AvgResponseChars())
	}
}

func TestByDaySortsOldestFirst(t *testing.T) {
	exchanges := []storage.Exchange{
		{Timestamp: time.Date(2026, 5, 12, 9, 0, 0, 0, time.UTC)},
		{Timestamp: time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)},
		{Timestamp: time.Date(2026, 5, 12, 10, 0, 0, 0, time.UTC)},
	}

	days := ByDay(exchanges, time.UTC)

	if len(days) != 2 {
		t.Fatalf("want 2 days, got %d", len(days))
	}
	if days[0].Date != "2026-05-10" || days[1].Date != "2026-05-12" {
		t.Fatalf("unexpected order: %+v", days)
	}
	if days[1].Exchanges != 2 {
		t.Fatalf("want 2 exchanges on the 12th, got %d", days[1].Exchanges)
	}
}

func TestAvgOfEmptyDay(t *testing.T) {
	if (DailyStats{}).AvgResponseChars() != 0 {
		t.Fatalf("empty day average must be zero")
	}
}
