// Package domain contains the core concepts of the treasure-hunt backend.
// This file defines chat messages. Messages are immutable once stored.
package domain

import "time"

// TimestampLayout is the ISO-8601 form used for every stored message (UTC, milliseconds).
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ChatMessage represents an immutable entry of the chat log.
type ChatMessage struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// FormatTimestamp renders t the way messages are stamped.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Page selects a window of the chat log. A zero Limit means "until the end".
type Page struct {
	Offset int
	Limit  int
}

// Bounds returns the slice bounds of the page for a log of the given length.
func (p Page) Bounds(length int) (int, int) {
	start := min(max(p.Offset, 0), length)
	if p.Limit <= 0 {
		return start, length
	}
	return start, min(start+p.Limit, length)
}
