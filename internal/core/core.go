package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// MaxURLLength is the maximum allowed length accepted by the Reserve operation.
const MaxURLLength = 2083

// ShortLink is the payload stored under a short code in the code store.
type ShortLink struct {
	LongURL   string `json:"longUrl"`
	OwnerName string `json:"userName,omitempty"`
}

// Encode returns the wire form of the link as kept in the code store.
func (l ShortLink) Encode() (string, error) {
	buf, err := json.Marshal(l)
	if err != nil {
		return "", fmt.Errorf("core: encode short link: %w", err)
	}
	return string(buf), nil
}

// DecodeShortLink parses a stored payload. A payload that does not decode or
// carries no destination is reported as ErrMalformedPayload.
func DecodeShortLink(payload string) (ShortLink, error) {
	var l ShortLink
	if err := json.Unmarshal([]byte(payload), &l); err != nil {
		return ShortLink{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if l.LongURL == "" {
		return ShortLink{}, fmt.Errorf("%w: missing longUrl", ErrMalformedPayload)
	}
	return l, nil
}

// ClickEvent is one entry of a user's click log, identified by (UserName, ClickTime).
type ClickEvent struct {
	UserName  string    `db:"user_name" json:"userName"`
	ClickTime time.Time `db:"click_time" json:"clickTime"`
	Code      string    `db:"code" json:"code"`
	LongURL   string    `db:"long_url" json:"longUrl"`
}

// ShortURL is a user's directory entry for one of their codes.
type ShortURL struct {
	LongURL string           `json:"longUrl"`
	Clicks  map[string]int64 `json:"clicks"`
}

// User is a user record together with its click aggregates.
type User struct {
	Name         string              `json:"name"`
	AllURLClicks int64               `json:"allUrlClicks"`
	Shorts       map[string]ShortURL `json:"shorts"`
}

// PeriodKey is the calendar month bucket used by per-code click counters.
func PeriodKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
