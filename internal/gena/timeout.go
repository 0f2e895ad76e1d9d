// Package gena implements General Event Notification Architecture
// subscription management (spec.md §4.4): the SUBSCRIBE/RENEW/
// UNSUBSCRIBE verb builders, Timeout-header grammar, and the embedded
// NOTIFY-receiving event server. Grounded on
// strefethen-sonos-hub-go/internal/sonos/events/{subscription.go,callback.go,parser.go}.
package gena

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// InfiniteTimeout marks a subscription with no expiry. Not advertised
// by well-behaved UPnP devices but accepted on the wire per the GENA
// grammar ("Second-infinite").
const InfiniteTimeout = -1

// FormatTimeout renders a requested timeout in seconds as the header
// value a SUBSCRIBE/RENEW request sends, e.g. "Second-1800".
func FormatTimeout(seconds int) string {
	if seconds < 0 {
		return "Second-infinite"
	}
	return fmt.Sprintf("Second-%d", seconds)
}

// ParseTimeout parses a Timeout header value of the form
// "Second-<n>" or "Second-infinite" per the GENA grammar (spec.md §4.4).
// It returns InfiniteTimeout for the infinite case and false if the
// value does not match the grammar.
func ParseTimeout(value string) (seconds int, ok bool) {
	value = strings.TrimSpace(value)
	rest, found := strings.CutPrefix(value, "Second-")
	if !found {
		return 0, false
	}
	if rest == "infinite" {
		return InfiniteTimeout, true
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// RenewalDelay returns how long to wait before renewing a subscription
// granted for the given duration, at the configured fraction of its
// lifetime (spec.md §4.5 default: 75%).
func RenewalDelay(granted time.Duration, fraction float64) time.Duration {
	if granted <= 0 {
		return 0
	}
	return time.Duration(float64(granted) * fraction)
}
