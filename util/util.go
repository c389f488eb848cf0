package util

import (
	"os"
	"os/user"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

var escapedControl = regexp.MustCompile(`\\u00[0-1][0-9a-fA-F]|\\u007[fF]|\\u008[0-9a-fA-F]|\\u009[0-9a-fA-F]`)

// FileExists returns true if path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ExpandTilde replaces a leading ~ in filePath with the current user's
// home directory.
func ExpandTilde(filePath string) (string, error) {
	if !strings.HasPrefix(filePath, "~") {
		return filePath, nil
	}
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	return filepath.Join(usr.HomeDir, strings.TrimPrefix(filePath, "~")), nil
}

// LooksSafeToDelete returns true if dir is absolute, at least
// minLength characters long and at least minSeparators levels deep.
// It keeps workers from removing / or /usr because of a bad setting.
func LooksSafeToDelete(dir string, minLength, minSeparators int) bool {
	separator := string(os.PathSeparator)
	separatorCount := len(strings.Split(dir, separator)) - 1
	return filepath.IsAbs(dir) &&
		len(dir) >= minLength &&
		separatorCount >= minSeparators
}

// ContainsControlCharacter returns true if str contains a Unicode
// control character.
func ContainsControlCharacter(str string) bool {
	return strings.IndexFunc(str, unicode.IsControl) >= 0
}

// ContainsEscapedControl returns true if str contains an escaped
// control character such as \u0000.
func ContainsEscapedControl(str string) bool {
	return escapedControl.MatchString(str)
}
