package smbsession

import (
	"errors"
	"strings"
)

// ErrInvalidPath indicates the path is invalid.
var ErrInvalidPath = errors.New("invalid path")

// ntNormPath normalizes p the way Windows does: both separators become
// backslashes, empty and "." segments are dropped and ".." removes the
// previous segment. A leading backslash is kept. ".." never climbs above
// the root of an absolute path.
func ntNormPath(p string) string {
	p = strings.ReplaceAll(p, "/", `\`)
	abs := strings.HasPrefix(p, `\`)

	segs := make([]string, 0, strings.Count(p, `\`)+1)
	for _, seg := range strings.Split(p, `\`) {
		switch seg {
		case "", ".":
			continue
		case "..":
			if n := len(segs); n > 0 && segs[n-1] != ".." {
				segs = segs[:n-1]
				continue
			}
			if abs {
				continue
			}
		}
		segs = append(segs, seg)
	}

	joined := strings.Join(segs, `\`)
	if abs {
		return `\` + joined
	}
	if joined == "" {
		return "."
	}
	return joined
}

// listPattern returns the NT pattern matching every entry under dir.
func listPattern(dir string) string {
	return ntNormPath(dir + `\*`)
}

// validatePath rejects paths that no server would accept.
func validatePath(p string) error {
	if strings.ContainsRune(p, 0) {
		return ErrInvalidPath
	}
	return nil
}

// isDotEntry reports whether name is one of the pseudo entries a directory
// listing may contain.
func isDotEntry(name string) bool {
	return name == "" || name == "." || name == ".."
}
