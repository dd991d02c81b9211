// Package store keeps the append-only conversation log.
package store

import (
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the stored timestamp format: UTC with second precision.
const TimeLayout = "2006-01-02T15:04:05Z"

// Turn is one finished exchange. Once appended it is never changed.
type Turn struct {
	ID             int64
	Timestamp      time.Time
	UserLanguage   string
	UserText       string
	Reasoning      string
	AssistantReply string
}

func (t Turn) normalized() Turn {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	t.Timestamp = t.Timestamp.UTC().Truncate(time.Second)
	t.UserLanguage = strings.ToLower(t.UserLanguage)
	return t
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
