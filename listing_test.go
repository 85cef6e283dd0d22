package smbsession

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/hirochachacha/go-smb2"
)

func statNamed(name string, attrs uint32) fs.FileInfo {
	return &smb2.FileStat{FileName: name, FileAttributes: attrs}
}

func collectNames(t *testing.T, seq func(func(Entry, error) bool)) ([]string, error) {
	t.Helper()
	var names []string
	for entry, err := range seq {
		if err != nil {
			return names, err
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func TestLs(t *testing.T) {
	mock := NewMockTransport()
	mock.AddShare("SHARE")
	mock.AddFile("SHARE", `\dir\report.docx`, 1024, 0)
	mock.AddFile("SHARE", `\dir\.hidden`, 10, FILE_ATTRIBUTE_HIDDEN)
	mock.AddDir("SHARE", `\dir\sub`)
	cfg, _ := testConfig(mock)
	sess := newTestSession(t, cfg)
	ctx := context.Background()
	sess.Login(ctx, false)

	var names []string
	for entry, err := range sess.Ls(ctx, "SHARE", `\dir`) {
		if err != nil {
			t.Fatalf("Ls() error = %v", err)
		}
		names = append(names, entry.Name())

		switch entry.Name() {
		case "report.docx":
			if entry.Size() != 1024 {
				t.Errorf("Size() = %d, want 1024", entry.Size())
			}
			if !entry.Attributes().IsArchive() {
				t.Errorf("Attributes() = %v, want Archive", entry.Attributes())
			}
		case ".hidden":
			if !entry.Attributes().IsHidden() {
				t.Errorf("Attributes() = %v, want Hidden", entry.Attributes())
			}
		case "sub":
			if !entry.IsDir() {
				t.Error("IsDir() = false for sub")
			}
			if entry.CreationTime().IsZero() {
				t.Error("CreationTime() is zero")
			}
		}
	}

	sort.Strings(names)
	want := []string{".hidden", "report.docx", "sub"}
	if !slices.Equal(names, want) {
		t.Errorf("Ls() = %q, want %q", names, want)
	}

	ops := mock.GetOperations()
	last := ops[len(ops)-1]
	if last.Op != "listPath" || last.Path != `SHARE\dir\*` {
		t.Errorf("last op = %s %q, want listPath %q", last.Op, last.Path, `SHARE\dir\*`)
	}
}

func TestLs_Root(t *testing.T) {
	mock := NewMockTransport()
	mock.AddShare("C$")
	mock.AddDir("C$", "Windows")
	mock.AddDir("C$", "Users")
	cfg, _ := testConfig(mock)
	sess := newTestSession(t, cfg)
	ctx := context.Background()
	sess.Login(ctx, false)

	for _, dir := range []string{"", `\`, "/", `\Windows\..`} {
		names, err := collectNames(t, sess.Ls(ctx, "C$", dir))
		if err != nil {
			t.Fatalf("Ls(%q) error = %v", dir, err)
		}
		sort.Strings(names)
		if !slices.Equal(names, []string{"Users", "Windows"}) {
			t.Errorf("Ls(%q) = %q", dir, names)
		}
	}
}

func TestLs_FiltersDotEntries(t *testing.T) {
	conn := &stubConn{
		entries: []fs.FileInfo{
			statNamed(".", FILE_ATTRIBUTE_DIRECTORY),
			statNamed("", FILE_ATTRIBUTE_NORMAL),
			statNamed("a.txt", FILE_ATTRIBUTE_ARCHIVE),
			statNamed("..", FILE_ATTRIBUTE_DIRECTORY),
			statNamed("...", FILE_ATTRIBUTE_NORMAL),
		},
	}
	sess := stubSession(t, conn)

	names, err := collectNames(t, sess.Ls(context.Background(), "SHARE", `\`))
	if err != nil {
		t.Fatalf("Ls() error = %v", err)
	}
	if !slices.Equal(names, []string{"a.txt", "..."}) {
		t.Errorf("Ls() = %q, want [a.txt ...]", names)
	}
}

func TestLs_FailsMidEnumeration(t *testing.T) {
	conn := &stubConn{
		entries: []fs.FileInfo{
			statNamed("one", FILE_ATTRIBUTE_ARCHIVE),
			statNamed("two", FILE_ATTRIBUTE_ARCHIVE),
			statNamed("three", FILE_ATTRIBUTE_ARCHIVE),
		},
		entryErrs: map[int]error{2: &smb2.TransportError{Err: net.ErrClosed}},
	}
	sess := stubSession(t, conn)

	var names []string
	var errs []error
	for entry, err := range sess.Ls(context.Background(), "SHARE", `\dir`) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		names = append(names, entry.Name())
	}

	if !slices.Equal(names, []string{"one", "two"}) {
		t.Errorf("entries before failure = %q, want [one two]", names)
	}
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want exactly 1", len(errs))
	}

	var le *ListingError
	if !errors.As(errs[0], &le) {
		t.Fatalf("error = %T, want *ListingError", errs[0])
	}
	if le.Share != "SHARE" {
		t.Errorf("Share = %q, want SHARE", le.Share)
	}
	if le.Path != `\dir\*` {
		t.Errorf("Path = %q, want %q", le.Path, `\dir\*`)
	}
	if le.Err.Kind != KindTransport {
		t.Errorf("Err.Kind = %v, want transport", le.Err.Kind)
	}
	if !errors.Is(errs[0], ErrListingFailed) {
		t.Error("errors.Is(err, ErrListingFailed) = false")
	}
}

func TestLs_MissingPath(t *testing.T) {
	mock := NewMockTransport()
	mock.AddShare("SHARE")
	cfg, _ := testConfig(mock)
	sess := newTestSession(t, cfg)
	ctx := context.Background()
	sess.Login(ctx, false)

	_, err := collectNames(t, sess.Ls(ctx, "SHARE", `\nope`))
	var le *ListingError
	if !errors.As(err, &le) {
		t.Fatalf("Ls() error = %v, want *ListingError", err)
	}
	if le.Err.Status != "STATUS_OBJECT_PATH_NOT_FOUND" {
		t.Errorf("Status = %q", le.Err.Status)
	}

	_, err = collectNames(t, sess.Ls(ctx, "NOSHARE", `\`))
	if !errors.As(err, &le) || le.Err.Status != "STATUS_BAD_NETWORK_NAME" {
		t.Errorf("Ls() on missing share error = %v", err)
	}
}

func TestLs_InjectedError(t *testing.T) {
	mock := NewMockTransport()
	mock.AddShare("SHARE")
	mock.AddFile("SHARE", `\dir\a`, 1, 0)
	mock.AddFile("SHARE", `\dir\b`, 1, 0)
	mock.SetListError("SHARE", `\dir`, 3, &smb2.ResponseError{Code: StatusNetworkSessionExpired})
	cfg, _ := testConfig(mock)
	sess := newTestSession(t, cfg)
	ctx := context.Background()
	sess.Login(ctx, false)

	names, err := collectNames(t, sess.Ls(ctx, "SHARE", `\dir`))
	if !slices.Equal(names, []string{"a"}) {
		t.Errorf("entries before failure = %q, want [a]", names)
	}
	if !errors.Is(err, ErrListingFailed) {
		t.Fatalf("Ls() error = %v, want listing failure", err)
	}
	if !isRetryable(err) {
		t.Error("expired session listing error should be retryable")
	}
}

func TestLs_NotAuthenticated(t *testing.T) {
	mock := NewMockTransport()
	mock.AddShare("SHARE")
	cfg, _ := testConfig(mock)
	sess := newTestSession(t, cfg)

	_, err := collectNames(t, sess.Ls(context.Background(), "SHARE", `\`))
	if !errors.Is(err, ErrListingFailed) || !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Ls() error = %v, want listing failure caused by ErrNotAuthenticated", err)
	}
	if n := mock.Count("listPath"); n != 0 {
		t.Errorf("listPath called %d times before login", n)
	}
}

func TestLs_InvalidPath(t *testing.T) {
	conn := &stubConn{}
	sess := stubSession(t, conn)

	_, err := collectNames(t, sess.Ls(context.Background(), "SHARE", "dir\x00"))
	if !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Ls() error = %v, want ErrInvalidPath", err)
	}
	if conn.calls != 0 {
		t.Errorf("ListPath called %d times for an invalid path", conn.calls)
	}
}

func TestLs_Lazy(t *testing.T) {
	conn := &stubConn{entries: []fs.FileInfo{statNamed("a", 0)}}
	sess := stubSession(t, conn)

	seq := sess.Ls(context.Background(), "SHARE", `\`)
	if conn.calls != 0 {
		t.Fatalf("Ls() issued %d requests before iteration", conn.calls)
	}
	for range seq {
	}
	for range seq {
	}
	if conn.calls != 2 {
		t.Errorf("ListPath called %d times, want 2", conn.calls)
	}
}

func TestEntry_CreationTimeFallback(t *testing.T) {
	mod := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	e := Entry{FileInfo: &smb2.FileStat{FileName: "f", LastWriteTime: mod}}
	if !e.CreationTime().Equal(mod) {
		t.Errorf("CreationTime() = %v, want %v", e.CreationTime(), mod)
	}
}
