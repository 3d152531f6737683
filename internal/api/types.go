package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type askRequest struct {
	Message string `json:"message"`
}

type askResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

// HistoryEntry is one past prompt as recorded by the backend.
type HistoryEntry struct {
	ID        EntryID   `json:"id"`
	Prompt    string    `json:"prompt"`
	Timestamp Timestamp `json:"timestamp"`
}

// EntryID accepts both numeric and string identifiers.
type EntryID string

func (id *EntryID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = EntryID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("history id: %w", err)
	}
	*id = EntryID(n.String())
	return nil
}

func (id EntryID) String() string { return string(id) }

// Timestamp accepts RFC 3339 and zone-less ISO-8601 values; the latter are
// taken as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if len(b) > 0 && b[0] != '"' {
		// epoch seconds
		sec, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return fmt.Errorf("history timestamp: %w", err)
		}
		whole := int64(sec)
		t.Time = time.Unix(whole, int64((sec-float64(whole))*1e9)).UTC()
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("history timestamp: unsupported format %q", s)
}
