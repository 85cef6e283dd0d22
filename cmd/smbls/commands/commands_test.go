package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absfs/smbsession"
)

func run(t *testing.T, transport smbsession.Transport, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd(transport)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func newMock() *smbsession.MockTransport {
	mock := smbsession.NewMockTransport()
	mock.AddUser("alice", "secret")
	mock.AddShare("ADMIN$")
	mock.AddShare("C$")
	mock.AddShare("Public")
	mock.AddFile("Public", `\Reports\q1.xlsx`, 2048, 0)
	mock.AddFile("Public", `\Reports\notes.txt`, 12, smbsession.FILE_ATTRIBUTE_HIDDEN)
	return mock
}

func TestShares_NullSession(t *testing.T) {
	mock := newMock()

	out, _, err := run(t, mock, "shares", "10.0.0.5")
	require.NoError(t, err)

	assert.Contains(t, out, "SHARE")
	assert.Contains(t, out, "ADMIN$")
	assert.Contains(t, out, "C$")
	assert.Contains(t, out, "Public")

	auths := mock.Auths()
	require.Len(t, auths, 1)
	assert.Empty(t, auths[0].Username)
}

func TestShares_CredentialsFromEnvironment(t *testing.T) {
	mock := newMock()
	t.Setenv("SMBLS_USER", "alice")
	t.Setenv("SMBLS_PASSWORD", "secret")
	t.Setenv("SMBLS_DOMAIN", "CORP")

	_, _, err := run(t, mock, "shares", "10.0.0.5")
	require.NoError(t, err)

	auths := mock.Auths()
	require.Len(t, auths, 1)
	assert.Equal(t, "alice", auths[0].Username)
	assert.Equal(t, "secret", auths[0].Password)
	assert.Equal(t, "CORP", auths[0].Domain)
}

func TestShares_FlagsOverrideEnvironment(t *testing.T) {
	mock := newMock()
	t.Setenv("SMBLS_USER", "mallory")

	_, _, err := run(t, mock, "shares", "10.0.0.5", "-u", "alice", "-p", "secret")
	require.NoError(t, err)

	auths := mock.Auths()
	require.NotEmpty(t, auths)
	assert.Equal(t, "alice", auths[0].Username)
}

func TestShares_PassTheHash(t *testing.T) {
	mock := smbsession.NewMockTransport()
	mock.AddUser("alice", "password")
	mock.AddShare("C$")

	out, _, err := run(t, mock, "shares", "10.0.0.5", "-u", "alice",
		"--hash", smbsession.EmptyLMHash+":8846f7eaee8fb117ad06bdd830b7586c")
	require.NoError(t, err)
	assert.Contains(t, out, "C$")

	auths := mock.Auths()
	require.Len(t, auths, 1)
	assert.Empty(t, auths[0].Password)
	assert.Equal(t, "8846f7eaee8fb117ad06bdd830b7586c", auths[0].NTHash)
}

func TestShares_DegradesToNullSession(t *testing.T) {
	mock := newMock()

	out, stderr, err := run(t, mock, "shares", "10.0.0.5", "-u", "alice", "-p", "wrong")
	require.NoError(t, err)

	assert.Contains(t, out, "Public")
	assert.Contains(t, stderr, "STATUS_LOGON_FAILURE")

	auths := mock.Auths()
	require.Len(t, auths, 2)
	assert.Equal(t, "alice", auths[0].Username)
	assert.Empty(t, auths[1].Username)
}

func TestShares_LoginFailed(t *testing.T) {
	mock := newMock()
	mock.AllowNullSession(false)

	_, _, err := run(t, mock, "shares", "10.0.0.5", "-u", "alice", "-p", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login to 10.0.0.5 failed")
	assert.Contains(t, err.Error(), "STATUS_ACCESS_DENIED")
}

func TestShares_NoneVisible(t *testing.T) {
	mock := smbsession.NewMockTransport()

	out, _, err := run(t, mock, "shares", "10.0.0.5")
	require.NoError(t, err)
	assert.Contains(t, out, "No shares found.")
}

func TestLs(t *testing.T) {
	mock := newMock()

	out, _, err := run(t, mock, "ls", "10.0.0.5", "Public", "/Reports")
	require.NoError(t, err)

	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "q1.xlsx")
	assert.Contains(t, out, "2048")
	assert.Contains(t, out, "Archive")
	assert.Contains(t, out, "notes.txt")
	assert.Contains(t, out, "Hidden")
	assert.NotContains(t, out, "..")
}

func TestLs_ShareRoot(t *testing.T) {
	mock := newMock()

	out, _, err := run(t, mock, "ls", "10.0.0.5", "Public")
	require.NoError(t, err)
	assert.Contains(t, out, `Reports\`)
}

func TestLs_MissingDirectory(t *testing.T) {
	mock := newMock()

	_, _, err := run(t, mock, "ls", "10.0.0.5", "Public", `\nope`)
	require.Error(t, err)
	assert.ErrorIs(t, err, smbsession.ErrListingFailed)
	assert.Contains(t, err.Error(), "STATUS_OBJECT_PATH_NOT_FOUND")
}

func TestLs_Retry(t *testing.T) {
	mock := newMock()

	out, _, err := run(t, mock, "ls", "10.0.0.5", "Public", "Reports", "--retry")
	require.NoError(t, err)
	assert.Contains(t, out, "q1.xlsx")
}

func TestInvalidLogLevel(t *testing.T) {
	_, _, err := run(t, newMock(), "shares", "10.0.0.5", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log level")
}

func TestArgsValidation(t *testing.T) {
	_, _, err := run(t, newMock(), "ls", "10.0.0.5")
	assert.Error(t, err)

	_, _, err = run(t, newMock(), "shares")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "smbls dev")
}

func TestEntryList_Rows(t *testing.T) {
	assert.Equal(t, []string{"NAME", "SIZE", "MODIFIED", "ATTRIBUTES"}, EntryList{}.Headers())
	assert.Empty(t, EntryList{}.Rows())
	assert.Equal(t, [][]string{{"C$"}, {"IPC$"}}, ShareList{"C$", "IPC$"}.Rows())
}
