package smbsession

import (
	"context"
	"io/fs"
	"iter"
	"time"

	"github.com/hirochachacha/go-smb2"
)

// Entry is one record of a directory listing. Its fs.FileInfo is passed
// through unchanged from the transport.
type Entry struct {
	fs.FileInfo
}

// Attributes returns the Windows attribute flags of the entry.
func (e Entry) Attributes() FileAttributes {
	return attributesOf(e.FileInfo)
}

// CreationTime returns the creation timestamp, or the modification time if
// the server did not report one.
func (e Entry) CreationTime() time.Time {
	if st, ok := e.FileInfo.(*smb2.FileStat); ok && !st.CreationTime.IsZero() {
		return st.CreationTime
	}
	return e.ModTime()
}

// Ls lists the entries of dir within share. The "." and ".." entries are
// never yielded.
//
// Any failure ends the sequence with a single *ListingError, which callers
// typically answer with Rebuild and a retry:
//
//	for entry, err := range sess.Ls(ctx, "C$", `\Users`) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(entry.Name())
//	}
func (s *Session) Ls(ctx context.Context, share, dir string) iter.Seq2[Entry, error] {
	pattern := listPattern(dir)

	return func(yield func(Entry, error) bool) {
		fail := func(err error) {
			ne := normalizeError(err)
			s.log.Debugf("%s: Error listing files at %q: %v", s.host, share+pattern, ne)
			yield(Entry{}, &ListingError{Share: share, Path: pattern, Err: ne})
		}

		if err := validatePath(dir); err != nil {
			fail(err)
			return
		}
		if !s.Authenticated() {
			fail(ErrNotAuthenticated)
			return
		}

		for info, err := range s.conn.ListPath(ctx, share, pattern) {
			if err != nil {
				fail(err)
				return
			}
			if isDotEntry(info.Name()) {
				continue
			}
			if !yield(Entry{FileInfo: info}, nil) {
				return
			}
		}
	}
}
