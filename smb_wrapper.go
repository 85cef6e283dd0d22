package smbsession

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"net"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/hirochachacha/go-smb2"
)

// readdirBatch is how many entries are fetched per QUERY_DIRECTORY round trip.
const readdirBatch = 128

// SMB2Transport implements Transport using go-smb2.
type SMB2Transport struct{}

// Connect opens a TCP connection to host:port.
func (t *SMB2Transport) Connect(ctx context.Context, host string, port int, timeout time.Duration) (Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	dialer := &net.Dialer{
		Timeout: timeout,
	}

	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	return &smb2Conn{netConn: netConn}, nil
}

// smb2Conn wraps a TCP connection and, once authenticated, a go-smb2 Session.
type smb2Conn struct {
	netConn net.Conn
	session *smb2.Session
}

// Authenticate negotiates and sets up an NTLM session.
// go-smb2 speaks NTLMv2 only, so the LM hash is not sent on the wire.
func (c *smb2Conn) Authenticate(ctx context.Context, auth Auth) error {
	if c.session != nil {
		_ = c.session.Logoff()
		c.session = nil
	}

	initiator := &smb2.NTLMInitiator{
		User:     auth.Username,
		Password: auth.Password,
		Domain:   auth.Domain,
	}
	if auth.NTHash != "" {
		hash, err := hex.DecodeString(auth.NTHash)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidHash, err)
		}
		initiator.Hash = hash
	}

	d := &smb2.Dialer{
		Initiator: initiator,
	}

	session, err := d.DialContext(ctx, c.netConn)
	if err != nil {
		return fmt.Errorf("SMB session setup failed: %w", err)
	}

	c.session = session
	return nil
}

// ListShares enumerates share names over the srvsvc pipe.
func (c *smb2Conn) ListShares(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if c.session == nil {
			yield("", ErrNotAuthenticated)
			return
		}

		names, err := c.session.WithContext(ctx).ListSharenames()
		if err != nil {
			yield("", err)
			return
		}

		for _, name := range names {
			if !yield(name, nil) {
				return
			}
		}
	}
}

// ListPath mounts share and reads the directory named by pattern in batches.
// Only the last element of pattern may contain wildcards.
func (c *smb2Conn) ListPath(ctx context.Context, share, pattern string) iter.Seq2[fs.FileInfo, error] {
	return func(yield func(fs.FileInfo, error) bool) {
		if c.session == nil {
			yield(nil, ErrNotAuthenticated)
			return
		}

		sh, err := c.session.WithContext(ctx).Mount(share)
		if err != nil {
			yield(nil, fmt.Errorf("failed to mount share %s: %w", share, err))
			return
		}
		defer sh.Umount()

		dir, glob := splitPattern(pattern)

		f, err := sh.Open(dir)
		if err != nil {
			yield(nil, err)
			return
		}
		defer f.Close()

		for {
			infos, err := f.Readdir(readdirBatch)
			for _, info := range infos {
				if !matchPattern(glob, info.Name()) {
					continue
				}
				if !yield(info, nil) {
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// Close logs off and closes the TCP connection.
func (c *smb2Conn) Close() error {
	if c.session != nil {
		_ = c.session.Logoff()
		c.session = nil
	}
	if c.netConn != nil {
		err := c.netConn.Close()
		c.netConn = nil
		return err
	}
	return nil
}

// splitPattern splits `\dir\sub\*` into the share-relative directory
// `dir\sub` and the final pattern element `*`.
func splitPattern(pattern string) (dir, glob string) {
	pattern = strings.TrimLeft(pattern, `\`)
	i := strings.LastIndexByte(pattern, '\\')
	if i < 0 {
		return "", pattern
	}
	return pattern[:i], pattern[i+1:]
}

// matchPattern matches name against glob case-insensitively, as Windows does.
func matchPattern(glob, name string) bool {
	if glob == "" || glob == "*" {
		return true
	}
	ok, err := path.Match(strings.ToLower(glob), strings.ToLower(name))
	return err == nil && ok
}
