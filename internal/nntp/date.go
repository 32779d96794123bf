package nntp

import (
	"net/mail"
	"strings"
	"time"
)

// Extra layouts seen in the wild from old or misbehaving posting agents;
// tried after the RFC 5322 parser gives up.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05",
	"2006-01-02 15:04:05 -0700",
}

// ParseDate parses an article Date header into UTC. It returns nil for
// unparsable dates; callers retain such headers rather than dropping them.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if t, err := mail.ParseDate(raw); err == nil {
		u := t.UTC()
		return &u
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}
