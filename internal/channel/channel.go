// Package channel derives pub/sub channel names for two-party
// conversations. The naming must be deterministic and order-independent:
// both the publishing side and the subscribing side compute the same name
// for a pair, or events silently miss their audience.
package channel

import (
	"fmt"
	"strconv"
	"strings"
)

// Prefix namespaces all private pair channels.
const Prefix = "chat-channel."

// Presence is the shared presence channel every authenticated session joins.
// Subscribers learn who is online; join/leave events drive the indicator.
const Presence = "users-online"

// Name returns the canonical private channel for a pair of user ids.
// Name(a, b) == Name(b, a) for all pairs.
func Name(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%s%d_%d", Prefix, a, b)
}

// Members parses a private pair channel name back into its two user ids.
// It returns ok=false for anything that is not a well-formed pair channel.
func Members(name string) (a, b int, ok bool) {
	rest, found := strings.CutPrefix(name, Prefix)
	if !found {
		return 0, 0, false
	}
	lo, hi, found := strings.Cut(rest, "_")
	if !found {
		return 0, 0, false
	}
	a, err := strconv.Atoi(lo)
	if err != nil {
		return 0, 0, false
	}
	b, err = strconv.Atoi(hi)
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

// Authorize reports whether userID may subscribe to the named channel.
// The presence channel is open to any authenticated user; a pair channel
// only to its two encoded participants.
func Authorize(name string, userID int) bool {
	if name == Presence {
		return userID > 0
	}
	a, b, ok := Members(name)
	if !ok {
		return false
	}
	return userID == a || userID == b
}
