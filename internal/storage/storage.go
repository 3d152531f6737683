// Package storage archives delivered exchanges locally. The archive is a
// record for the user; it is never read back into a dashboard transcript.
package storage

import "time"

// Exchange is one delivered prompt and the sanitized reply shown for it.
type Exchange struct {
	Timestamp         time.Time `json:"timestamp"`
	TurnID            string    `json:"turn_id"`
	UserMessage       string    `json:"user_message"`
	AssistantResponse string    `json:"assistant_response"`
}

// Recorder persists exchanges in chronological order. Implementations must
// be safe for concurrent use.
type Recorder interface {
	AppendExchange(ex Exchange) error
	LoadExchanges() ([]Exchange, error)
}
