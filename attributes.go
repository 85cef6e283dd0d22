package smbsession

import (
	"io/fs"
	"strings"

	"github.com/hirochachacha/go-smb2"
)

// Windows file attribute flags as defined in MS-FSCC 2.6.
const (
	FILE_ATTRIBUTE_READONLY            = 0x00000001
	FILE_ATTRIBUTE_HIDDEN              = 0x00000002
	FILE_ATTRIBUTE_SYSTEM              = 0x00000004
	FILE_ATTRIBUTE_DIRECTORY           = 0x00000010
	FILE_ATTRIBUTE_ARCHIVE             = 0x00000020
	FILE_ATTRIBUTE_DEVICE              = 0x00000040
	FILE_ATTRIBUTE_NORMAL              = 0x00000080
	FILE_ATTRIBUTE_TEMPORARY           = 0x00000100
	FILE_ATTRIBUTE_SPARSE_FILE         = 0x00000200
	FILE_ATTRIBUTE_REPARSE_POINT       = 0x00000400
	FILE_ATTRIBUTE_COMPRESSED          = 0x00000800
	FILE_ATTRIBUTE_OFFLINE             = 0x00001000
	FILE_ATTRIBUTE_NOT_CONTENT_INDEXED = 0x00002000
	FILE_ATTRIBUTE_ENCRYPTED           = 0x00004000
)

// FileAttributes is the raw attribute word the server reports for an entry.
type FileAttributes uint32

func (a FileAttributes) has(flag uint32) bool {
	return uint32(a)&flag != 0
}

// IsReadOnly returns true if the entry has the read-only attribute.
func (a FileAttributes) IsReadOnly() bool { return a.has(FILE_ATTRIBUTE_READONLY) }

// IsHidden returns true if the entry has the hidden attribute.
func (a FileAttributes) IsHidden() bool { return a.has(FILE_ATTRIBUTE_HIDDEN) }

// IsSystem returns true if the entry has the system attribute.
func (a FileAttributes) IsSystem() bool { return a.has(FILE_ATTRIBUTE_SYSTEM) }

// IsDirectory returns true if the entry is a directory.
func (a FileAttributes) IsDirectory() bool { return a.has(FILE_ATTRIBUTE_DIRECTORY) }

// IsArchive returns true if the entry has the archive attribute.
func (a FileAttributes) IsArchive() bool { return a.has(FILE_ATTRIBUTE_ARCHIVE) }

// IsReparsePoint returns true if the entry is a symlink or junction.
func (a FileAttributes) IsReparsePoint() bool { return a.has(FILE_ATTRIBUTE_REPARSE_POINT) }

// IsOffline returns true if the entry's data is not immediately available.
func (a FileAttributes) IsOffline() bool { return a.has(FILE_ATTRIBUTE_OFFLINE) }

// IsEncrypted returns true if the entry is encrypted.
func (a FileAttributes) IsEncrypted() bool { return a.has(FILE_ATTRIBUTE_ENCRYPTED) }

var attributeNames = []struct {
	flag uint32
	name string
}{
	{FILE_ATTRIBUTE_READONLY, "ReadOnly"},
	{FILE_ATTRIBUTE_HIDDEN, "Hidden"},
	{FILE_ATTRIBUTE_SYSTEM, "System"},
	{FILE_ATTRIBUTE_DIRECTORY, "Directory"},
	{FILE_ATTRIBUTE_ARCHIVE, "Archive"},
	{FILE_ATTRIBUTE_TEMPORARY, "Temporary"},
	{FILE_ATTRIBUTE_SPARSE_FILE, "Sparse"},
	{FILE_ATTRIBUTE_REPARSE_POINT, "ReparsePoint"},
	{FILE_ATTRIBUTE_COMPRESSED, "Compressed"},
	{FILE_ATTRIBUTE_OFFLINE, "Offline"},
	{FILE_ATTRIBUTE_ENCRYPTED, "Encrypted"},
}

// String returns a comma separated list of the set flags.
func (a FileAttributes) String() string {
	var names []string
	for _, an := range attributeNames {
		if a.has(an.flag) {
			names = append(names, an.name)
		}
	}
	if len(names) == 0 {
		return "Normal"
	}
	return strings.Join(names, ", ")
}

// attributesOf extracts the attribute word from a directory record. Records
// that do not come from go-smb2 get a best-effort value derived from the mode.
func attributesOf(info fs.FileInfo) FileAttributes {
	if st, ok := info.(*smb2.FileStat); ok {
		return FileAttributes(st.FileAttributes)
	}
	return modeToAttributes(info.Mode())
}

// modeToAttributes converts a Unix file mode to Windows attributes.
func modeToAttributes(mode fs.FileMode) FileAttributes {
	var attrs uint32

	if mode&0222 == 0 {
		attrs |= FILE_ATTRIBUTE_READONLY
	}
	if mode.IsDir() {
		attrs |= FILE_ATTRIBUTE_DIRECTORY
	}
	if mode&fs.ModeSymlink != 0 {
		attrs |= FILE_ATTRIBUTE_REPARSE_POINT
	}
	if mode&fs.ModeDevice != 0 {
		attrs |= FILE_ATTRIBUTE_DEVICE
	}
	if attrs == 0 {
		attrs = FILE_ATTRIBUTE_NORMAL
	}

	return FileAttributes(attrs)
}
