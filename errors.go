package smbsession

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/hirochachacha/go-smb2"
)

var (
	// ErrInvalidConfig indicates the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidHash indicates an NT hash is not 32 hex characters.
	ErrInvalidHash = errors.New("invalid NT hash")

	// ErrNotAuthenticated indicates an operation needs a logged-in session.
	ErrNotAuthenticated = errors.New("session is not authenticated")

	// ErrSessionClosed indicates the session has been closed.
	ErrSessionClosed = errors.New("session closed")

	// ErrListingFailed matches every *ListingError via errors.Is.
	ErrListingFailed = errors.New("listing failed")
)

// Kind classifies a normalized failure.
type Kind int

const (
	// KindUnknown is a failure of a type the normalizer does not recognize.
	KindUnknown Kind = iota
	// KindTransport means the connection could not be established or was lost.
	KindTransport
	// KindAuthentication means the server rejected the credentials.
	KindAuthentication
	// KindProtocol is a server-side status that is not an authentication failure.
	KindProtocol
	// KindCancelled means the caller abandoned the operation.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAuthentication:
		return "authentication"
	case KindProtocol:
		return "protocol"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// AuthKind narrows a KindAuthentication failure.
type AuthKind int

const (
	AuthOther AuthKind = iota
	AuthLogonFailure
	AuthPasswordExpired
)

// NTSTATUS codes the session reacts to. See MS-ERREF 2.3.1.
const (
	StatusNoSuchFile            uint32 = 0xC000000F
	StatusAccessDenied          uint32 = 0xC0000022
	StatusObjectNameNotFound    uint32 = 0xC0000034
	StatusObjectPathNotFound    uint32 = 0xC000003A
	StatusSharingViolation      uint32 = 0xC0000043
	StatusLogonFailure          uint32 = 0xC000006D
	StatusAccountRestriction    uint32 = 0xC000006E
	StatusPasswordExpired       uint32 = 0xC0000071
	StatusAccountDisabled       uint32 = 0xC0000072
	StatusIOTimeout             uint32 = 0xC00000B5
	StatusNetworkNameDeleted    uint32 = 0xC00000C9
	StatusBadNetworkName        uint32 = 0xC00000CC
	StatusNotADirectory         uint32 = 0xC0000103
	StatusLogonTypeNotGranted   uint32 = 0xC000015B
	StatusUserSessionDeleted    uint32 = 0xC0000203
	StatusConnectionReset       uint32 = 0xC000020D
	StatusPasswordMustChange    uint32 = 0xC0000224
	StatusAccountLockedOut      uint32 = 0xC0000234
	StatusNetworkSessionExpired uint32 = 0xC000035C
)

var statusNames = map[uint32]string{
	StatusNoSuchFile:            "STATUS_NO_SUCH_FILE",
	StatusAccessDenied:          "STATUS_ACCESS_DENIED",
	StatusObjectNameNotFound:    "STATUS_OBJECT_NAME_NOT_FOUND",
	StatusObjectPathNotFound:    "STATUS_OBJECT_PATH_NOT_FOUND",
	StatusSharingViolation:      "STATUS_SHARING_VIOLATION",
	StatusLogonFailure:          "STATUS_LOGON_FAILURE",
	StatusAccountRestriction:    "STATUS_ACCOUNT_RESTRICTION",
	StatusPasswordExpired:       "STATUS_PASSWORD_EXPIRED",
	StatusAccountDisabled:       "STATUS_ACCOUNT_DISABLED",
	StatusIOTimeout:             "STATUS_IO_TIMEOUT",
	StatusNetworkNameDeleted:    "STATUS_NETWORK_NAME_DELETED",
	StatusBadNetworkName:        "STATUS_BAD_NETWORK_NAME",
	StatusNotADirectory:         "STATUS_NOT_A_DIRECTORY",
	StatusLogonTypeNotGranted:   "STATUS_LOGON_TYPE_NOT_GRANTED",
	StatusUserSessionDeleted:    "STATUS_USER_SESSION_DELETED",
	StatusConnectionReset:       "STATUS_CONNECTION_RESET",
	StatusPasswordMustChange:    "STATUS_PASSWORD_MUST_CHANGE",
	StatusAccountLockedOut:      "STATUS_ACCOUNT_LOCKED_OUT",
	StatusNetworkSessionExpired: "STATUS_NETWORK_SESSION_EXPIRED",
}

// authStatuses are the codes that mean the credentials themselves were refused.
var authStatuses = map[uint32]bool{
	StatusLogonFailure:        true,
	StatusAccountRestriction:  true,
	StatusPasswordExpired:     true,
	StatusAccountDisabled:     true,
	StatusLogonTypeNotGranted: true,
	StatusPasswordMustChange:  true,
	StatusAccountLockedOut:    true,
}

// StatusName returns the symbolic name of an NTSTATUS code.
func StatusName(code uint32) string {
	if name, ok := statusNames[code]; ok {
		return name
	}
	return fmt.Sprintf("STATUS_0x%08X", code)
}

// Error is a normalized transport or protocol failure.
type Error struct {
	Kind    Kind
	Status  string // symbolic NTSTATUS, empty when the server sent none
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s: %s", e.Status, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AuthKind reports which authentication failure this is.
func (e *Error) AuthKind() AuthKind {
	switch e.Status {
	case "STATUS_LOGON_FAILURE":
		return AuthLogonFailure
	case "STATUS_PASSWORD_EXPIRED":
		return AuthPasswordExpired
	}
	return AuthOther
}

// ListingError is returned by Ls when a directory cannot be enumerated.
type ListingError struct {
	Share string
	Path  string
	Err   *Error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("error listing files at %q: %v", e.Share+e.Path, e.Err)
}

func (e *ListingError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrListingFailed) match any ListingError.
func (e *ListingError) Is(target error) bool {
	return target == ErrListingFailed
}

// normalizeError converts any failure from the transport into an *Error.
// It returns nil for a nil error.
func normalizeError(err error) *Error {
	if err == nil {
		return nil
	}

	var ne *Error
	if errors.As(err, &ne) {
		return ne
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindCancelled, Message: err.Error(), Err: err}
	}

	var respErr *smb2.ResponseError
	if errors.As(err, &respErr) {
		kind := KindProtocol
		if authStatuses[respErr.Code] {
			kind = KindAuthentication
		}
		return &Error{
			Kind:    kind,
			Status:  StatusName(respErr.Code),
			Message: respErr.Error(),
			Err:     err,
		}
	}

	var ctxErr *smb2.ContextError
	if errors.As(err, &ctxErr) {
		return &Error{Kind: KindCancelled, Message: ctxErr.Error(), Err: err}
	}

	var transportErr *smb2.TransportError
	if errors.As(err, &transportErr) {
		return &Error{Kind: KindTransport, Message: transportErr.Error(), Err: err}
	}

	var invalidErr *smb2.InvalidResponseError
	if errors.As(err, &invalidErr) {
		return &Error{Kind: KindProtocol, Message: invalidErr.Error(), Err: err}
	}

	var internalErr *smb2.InternalError
	if errors.As(err, &internalErr) {
		return &Error{Kind: KindProtocol, Message: internalErr.Error(), Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{Kind: KindTransport, Message: netErr.Error(), Err: err}
	}

	switch {
	case errors.Is(err, ErrNotAuthenticated), errors.Is(err, ErrSessionClosed):
		return &Error{Kind: KindTransport, Message: err.Error(), Err: err}
	}

	return &Error{Kind: KindUnknown, Message: fmt.Sprintf("unknown error: %v", err), Err: err}
}

// retryableStatuses are server statuses that a fresh session usually clears.
var retryableStatuses = map[string]bool{
	"STATUS_IO_TIMEOUT":              true,
	"STATUS_NETWORK_NAME_DELETED":    true,
	"STATUS_USER_SESSION_DELETED":    true,
	"STATUS_CONNECTION_RESET":        true,
	"STATUS_NETWORK_SESSION_EXPIRED": true,
}

// isRetryable returns true if the error indicates a transient failure
// that a rebuilt session might get past.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	ne := normalizeError(err)
	switch ne.Kind {
	case KindCancelled, KindAuthentication:
		return false
	case KindTransport:
		return true
	case KindProtocol:
		return retryableStatuses[ne.Status]
	}

	return false
}
