// Package deeplink encodes canonical names into t.me start links and back.
//
// Tokens carry the canonical name itself, percent-encoded. They are not
// signed: anyone who can read a directory can build a valid link.
//
// Telegram only forwards start parameters made of [A-Za-z0-9_-] and at most
// 64 characters long. Tokens with '=' or '%' escapes, or long names, may be
// dropped by clients, leaving a bare /start.
package deeplink

import (
	"fmt"
	"net/url"
	"strings"
)

// StartPrefix is the start-parameter prefix that marks a file request.
const StartPrefix = "file="

// Encode percent-encodes a canonical name for use as a start parameter token.
// Spaces become %20 rather than '+'.
func Encode(name string) string {
	return strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
}

// Decode reverses Encode. A malformed token is returned unchanged so callers
// fall through to a normal "not found" lookup.
func Decode(token string) string {
	name, err := url.QueryUnescape(token)
	if err != nil {
		return token
	}
	return name
}

// MaxStartParamLength is the longest start parameter Telegram forwards.
const MaxStartParamLength = 64

// Passable reports whether Telegram clients will forward param as a /start
// argument unchanged.
func Passable(param string) bool {
	if param == "" || len(param) > MaxStartParamLength {
		return false
	}
	for _, r := range param {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// ParseStart extracts the token from a /start argument of the form "file=<token>".
func ParseStart(arg string) (string, bool) {
	arg = strings.TrimSpace(arg)
	if !strings.HasPrefix(arg, StartPrefix) {
		return "", false
	}
	return strings.TrimPrefix(arg, StartPrefix), true
}

// Builder renders absolute shareable links for one bot.
type Builder struct {
	botUsername string
}

// NewBuilder creates a link builder for the bot with the given @username (with or without '@').
func NewBuilder(botUsername string) *Builder {
	return &Builder{botUsername: strings.TrimPrefix(botUsername, "@")}
}

// Link returns the absolute t.me URL that asks the bot for name.
func (b *Builder) Link(name string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s%s", b.botUsername, StartPrefix, Encode(name))
}
