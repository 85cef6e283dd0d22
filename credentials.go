package smbsession

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf16"

	"golang.org/x/crypto/md4"
)

// EmptyLMHash is the LM hash of an empty password. It is sent alongside an
// NT hash when authenticating in hash mode.
const EmptyLMHash = "aad3b435b51404eeaad3b435b51404ee"

// AuthMode is the authentication mode a credential set selects.
type AuthMode int

const (
	AuthModeAnonymous AuthMode = iota
	AuthModePassword
	AuthModeHash
)

func (m AuthMode) String() string {
	switch m {
	case AuthModePassword:
		return "password"
	case AuthModeHash:
		return "hash"
	default:
		return "anonymous"
	}
}

// Credentials is the identity material a Session authenticates with.
// An empty Username means an anonymous (null) session.
type Credentials struct {
	Username string
	Password string
	Domain   string
	NTHash   string // 32 lowercase hex characters, or empty
}

// Mode returns the active authentication mode.
func (c *Credentials) Mode() AuthMode {
	switch {
	case c.Username == "":
		return AuthModeAnonymous
	case c.NTHash != "" && c.Password == "":
		return AuthModeHash
	default:
		return AuthModePassword
	}
}

// LMHash returns EmptyLMHash when an NT hash is present.
func (c *Credentials) LMHash() string {
	if c.NTHash != "" {
		return EmptyLMHash
	}
	return ""
}

// IsAnonymous reports whether no identity is set.
func (c *Credentials) IsAnonymous() bool {
	return c.Username == ""
}

// clear drops all identity material at once.
func (c *Credentials) clear() {
	*c = Credentials{}
}

// auth builds the request passed to Conn.Authenticate for the current mode.
func (c *Credentials) auth() Auth {
	if c.Mode() == AuthModeHash {
		return Auth{
			Username: c.Username,
			Domain:   c.Domain,
			LMHash:   c.LMHash(),
			NTHash:   c.NTHash,
		}
	}
	return Auth{
		Username: c.Username,
		Password: c.Password,
		Domain:   c.Domain,
	}
}

// String hides secrets so credentials can be logged.
func (c Credentials) String() string {
	user := c.Username
	if c.Domain != "" {
		user = c.Domain + `\` + user
	}
	if user == "" {
		user = "<anonymous>"
	}
	return fmt.Sprintf("%s (%s)", user, c.Mode())
}

// ParseNTHash validates an NT hash given either as "NT" or "LM:NT" and
// returns the NT part in lowercase hex. An empty string is accepted.
func ParseNTHash(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		s = s[i+1:]
	}
	if len(s) != 32 {
		return "", fmt.Errorf("%w: expected 32 hex characters, got %d", ErrInvalidHash, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	return strings.ToLower(s), nil
}

// NTHashFromPassword computes MD4(UTF-16LE(password)) in hex.
func NTHashFromPassword(password string) string {
	u := utf16.Encode([]rune(password))
	b := make([]byte, len(u)*2)
	for i, r := range u {
		b[2*i] = byte(r)
		b[2*i+1] = byte(r >> 8)
	}

	h := md4.New()
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}
