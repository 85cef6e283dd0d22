package smbsession

import (
	"context"
	"io/fs"
	"iter"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/hirochachacha/go-smb2"
)

// MockTransport provides an in-memory SMB server simulation for testing.
// It keeps a set of accounts, shares and directories, can inject failures
// and records every operation for verification.
type MockTransport struct {
	mu sync.Mutex

	// accounts maps lowercase usernames to passwords
	accounts   map[string]string
	authStatus map[string]uint32
	allowNull  bool

	shares     []string
	shareErrAt int
	shareErr   error

	// dirs maps mockKey(share, dir) to the directory's entries
	dirs      map[string][]*smb2.FileStat
	listErrAt map[string]int
	listErr   map[string]error

	connectErr error

	opMu       sync.Mutex
	operations []MockOperation
}

// MockOperation records an operation performed on the mock transport.
type MockOperation struct {
	Op   string
	Path string
	Auth Auth
	Time time.Time
}

// NewMockTransport creates a mock server that accepts null sessions and has
// no accounts or shares.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		accounts:   make(map[string]string),
		authStatus: make(map[string]uint32),
		allowNull:  true,
		shareErrAt: -1,
		dirs:       make(map[string][]*smb2.FileStat),
		listErrAt:  make(map[string]int),
		listErr:    make(map[string]error),
	}
}

// AddUser adds an account.
func (m *MockTransport) AddUser(username, password string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[strings.ToLower(username)] = password
}

// SetAuthStatus makes every login as username fail with the given NTSTATUS.
// Use "" to target null sessions.
func (m *MockTransport) SetAuthStatus(username string, status uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authStatus[strings.ToLower(username)] = status
}

// AllowNullSession controls whether anonymous logins succeed.
func (m *MockTransport) AllowNullSession(allow bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowNull = allow
}

// SetConnectError makes Connect fail with err. nil clears it.
func (m *MockTransport) SetConnectError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectErr = err
}

// AddShare adds a share with an empty root directory. Share names are
// reported NUL-terminated, the way NetShareEnum records carry them.
func (m *MockTransport) AddShare(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shares = append(m.shares, name+"\x00")
	key := mockKey(name, "")
	if _, ok := m.dirs[key]; !ok {
		m.dirs[key] = dotEntries()
	}
}

// SetShareError makes share enumeration fail with err in place of the
// record at index at.
func (m *MockTransport) SetShareError(at int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shareErrAt = at
	m.shareErr = err
}

// AddDir adds a directory and any missing parents.
func (m *MockTransport) AddDir(share, dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addEntryLocked(share, dir, &smb2.FileStat{
		FileAttributes: FILE_ATTRIBUTE_DIRECTORY,
	})
}

// AddFile adds a file of the given size and any missing parent directories.
func (m *MockTransport) AddFile(share, file string, size int64, attrs uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if attrs == 0 {
		attrs = FILE_ATTRIBUTE_ARCHIVE
	}
	m.addEntryLocked(share, file, &smb2.FileStat{
		EndOfFile:      size,
		AllocationSize: size,
		FileAttributes: attrs,
	})
}

// SetListError makes listing dir within share fail with err in place of the
// entry at index at. Index 0 is the "." entry.
func (m *MockTransport) SetListError(share, dir string, at int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := mockKey(share, dir)
	m.listErrAt[key] = at
	m.listErr[key] = err
}

// ClearErrors clears all injected errors.
func (m *MockTransport) ClearErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectErr = nil
	m.shareErrAt = -1
	m.shareErr = nil
	m.authStatus = make(map[string]uint32)
	m.listErrAt = make(map[string]int)
	m.listErr = make(map[string]error)
}

// GetOperations returns all recorded operations.
func (m *MockTransport) GetOperations() []MockOperation {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	ops := make([]MockOperation, len(m.operations))
	copy(ops, m.operations)
	return ops
}

// Count returns how many operations of kind op were recorded.
func (m *MockTransport) Count(op string) int {
	n := 0
	for _, o := range m.GetOperations() {
		if o.Op == op {
			n++
		}
	}
	return n
}

// Auths returns the authentication requests in the order they were made.
func (m *MockTransport) Auths() []Auth {
	var auths []Auth
	for _, o := range m.GetOperations() {
		if o.Op == "authenticate" {
			auths = append(auths, o.Auth)
		}
	}
	return auths
}

func (m *MockTransport) recordOp(op, path string, auth Auth) {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.operations = append(m.operations, MockOperation{
		Op:   op,
		Path: path,
		Auth: auth,
		Time: time.Now(),
	})
}

// Connect implements Transport.
func (m *MockTransport) Connect(ctx context.Context, host string, port int, timeout time.Duration) (Conn, error) {
	m.recordOp("connect", host, Auth{})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	err := m.connectErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return &mockConn{backend: m}, nil
}

// addEntryLocked adds p to its parent listing, creating parents as needed.
// Caller must hold m.mu.
func (m *MockTransport) addEntryLocked(share, p string, st *smb2.FileStat) {
	p = strings.TrimPrefix(ntNormPath(`\`+p), `\`)
	if p == "" {
		return
	}

	parent, name := "", p
	if i := strings.LastIndexByte(p, '\\'); i >= 0 {
		parent, name = p[:i], p[i+1:]
	}
	if parent != "" {
		if _, ok := m.dirs[mockKey(share, parent)]; !ok {
			m.addEntryLocked(share, parent, &smb2.FileStat{FileAttributes: FILE_ATTRIBUTE_DIRECTORY})
		}
	}

	parentKey := mockKey(share, parent)
	if _, ok := m.dirs[parentKey]; !ok {
		m.dirs[parentKey] = dotEntries()
	}

	now := time.Now()
	st.FileName = name
	st.CreationTime = now
	st.LastWriteTime = now
	st.LastAccessTime = now
	st.ChangeTime = now
	m.dirs[parentKey] = append(m.dirs[parentKey], st)

	if st.FileAttributes&FILE_ATTRIBUTE_DIRECTORY != 0 {
		if _, ok := m.dirs[mockKey(share, p)]; !ok {
			m.dirs[mockKey(share, p)] = dotEntries()
		}
	}
}

// mockConn is a connection to a MockTransport.
type mockConn struct {
	backend       *MockTransport
	authenticated bool
	closed        bool
}

func (c *mockConn) check() error {
	if c.closed {
		return &smb2.TransportError{Err: net.ErrClosed}
	}
	if !c.authenticated {
		return ErrNotAuthenticated
	}
	return nil
}

// Authenticate implements Conn.
func (c *mockConn) Authenticate(ctx context.Context, auth Auth) error {
	m := c.backend
	m.recordOp("authenticate", auth.Username, auth)

	if c.closed {
		return &smb2.TransportError{Err: net.ErrClosed}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	user := strings.ToLower(auth.Username)
	if status, ok := m.authStatus[user]; ok {
		return &smb2.ResponseError{Code: status}
	}

	if user == "" {
		if !m.allowNull {
			return &smb2.ResponseError{Code: StatusAccessDenied}
		}
		c.authenticated = true
		return nil
	}

	password, ok := m.accounts[user]
	switch {
	case !ok:
		return &smb2.ResponseError{Code: StatusLogonFailure}
	case auth.NTHash != "":
		if auth.NTHash != NTHashFromPassword(password) {
			return &smb2.ResponseError{Code: StatusLogonFailure}
		}
	case auth.Password != password:
		return &smb2.ResponseError{Code: StatusLogonFailure}
	}

	c.authenticated = true
	return nil
}

// ListShares implements Conn.
func (c *mockConn) ListShares(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		m := c.backend
		m.recordOp("listShares", "", Auth{})

		if err := c.check(); err != nil {
			yield("", err)
			return
		}

		m.mu.Lock()
		shares := append([]string(nil), m.shares...)
		errAt, shareErr := m.shareErrAt, m.shareErr
		m.mu.Unlock()

		for i, name := range shares {
			if i == errAt {
				yield("", shareErr)
				return
			}
			if !yield(name, nil) {
				return
			}
		}
	}
}

// ListPath implements Conn.
func (c *mockConn) ListPath(ctx context.Context, share, pattern string) iter.Seq2[fs.FileInfo, error] {
	return func(yield func(fs.FileInfo, error) bool) {
		m := c.backend
		m.recordOp("listPath", share+pattern, Auth{})

		if err := c.check(); err != nil {
			yield(nil, err)
			return
		}

		dir, glob := splitPattern(pattern)
		key := mockKey(share, dir)

		m.mu.Lock()
		_, shareExists := m.dirs[mockKey(share, "")]
		entries, dirExists := m.dirs[key]
		entries = append([]*smb2.FileStat(nil), entries...)
		errAt, hasErr := m.listErrAt[key]
		listErr := m.listErr[key]
		m.mu.Unlock()

		switch {
		case !shareExists:
			yield(nil, &smb2.ResponseError{Code: StatusBadNetworkName})
			return
		case !dirExists:
			yield(nil, &smb2.ResponseError{Code: StatusObjectPathNotFound})
			return
		}

		for i, st := range entries {
			if hasErr && i == errAt {
				yield(nil, listErr)
				return
			}
			if !matchPattern(glob, st.FileName) {
				continue
			}
			if !yield(st, nil) {
				return
			}
		}
	}
}

// Close implements Conn.
func (c *mockConn) Close() error {
	c.backend.recordOp("close", "", Auth{})
	c.closed = true
	return nil
}

func mockKey(share, dir string) string {
	dir = strings.TrimPrefix(ntNormPath(`\`+dir), `\`)
	return strings.ToLower(share) + ":" + strings.ToLower(dir)
}

func dotEntries() []*smb2.FileStat {
	return []*smb2.FileStat{
		{FileName: ".", FileAttributes: FILE_ATTRIBUTE_DIRECTORY},
		{FileName: "..", FileAttributes: FILE_ATTRIBUTE_DIRECTORY},
	}
}
