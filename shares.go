package smbsession

import (
	"context"
	"iter"
	"strings"
)

// Shares returns the share names on the server. Each iteration issues a
// fresh request.
//
// Enumeration is best effort: a failure is logged and ends the sequence
// early, so consumers only ever see fewer names.
//
// Example:
//
//	for name := range sess.Shares(ctx) {
//	    fmt.Println(name)
//	}
func (s *Session) Shares(ctx context.Context) iter.Seq[string] {
	return func(yield func(string) bool) {
		if !s.Authenticated() {
			s.log.Debugf("%s: Error listing shares: %v", s.host, ErrNotAuthenticated)
			return
		}

		for raw, err := range s.conn.ListShares(ctx) {
			if err != nil {
				s.log.Debugf("%s: Error listing shares: %v", s.host, normalizeError(err))
				return
			}

			name := strings.TrimRight(raw, "\x00")
			s.log.Debugf("%s: Found share: %s", s.host, name)
			if !yield(name) {
				return
			}
		}
	}
}
