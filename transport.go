package smbsession

import (
	"context"
	"io/fs"
	"iter"
	"time"
)

// Auth is one authentication request. Exactly one of Password or NTHash is
// meaningful; both empty with an empty Username requests a null session.
type Auth struct {
	Username string
	Password string
	Domain   string
	LMHash   string
	NTHash   string
}

// Transport opens connections to SMB servers.
// It abstracts go-smb2 for testability.
type Transport interface {
	// Connect establishes a transport-level connection. No identity is
	// asserted until Conn.Authenticate is called.
	Connect(ctx context.Context, host string, port int, timeout time.Duration) (Conn, error)
}

// Conn is a single connection to a server.
type Conn interface {
	// Authenticate sets up the SMB session with the given identity.
	Authenticate(ctx context.Context, auth Auth) error

	// ListShares enumerates share names as the server reports them,
	// possibly with a trailing NUL. A non-nil error ends the sequence.
	ListShares(ctx context.Context) iter.Seq2[string, error]

	// ListPath enumerates the entries of share matching an NT-style
	// pattern such as `\dir\*`. A non-nil error ends the sequence.
	ListPath(ctx context.Context, share, pattern string) iter.Seq2[fs.FileInfo, error]

	// Close tears down the connection.
	Close() error
}
