package util_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/APTrust/transfer-services/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "manifest.xml")
	require.Nil(t, os.WriteFile(file, []byte("<x/>"), 0644))
	assert.True(t, util.FileExists(file))
	assert.True(t, util.FileExists(dir))
	assert.False(t, util.FileExists(filepath.Join(dir, "NonExistentFile.xyz")))
}

func TestExpandTilde(t *testing.T) {
	expanded, err := util.ExpandTilde("~/tmp")
	assert.Nil(t, err)
	assert.True(t, len(expanded) > 6)
	assert.True(t, strings.HasSuffix(expanded, "tmp"))
	assert.False(t, strings.HasPrefix(expanded, "~"))

	expanded, err = util.ExpandTilde("/nothing/to/expand")
	assert.Nil(t, err)
	assert.Equal(t, "/nothing/to/expand", expanded)
}

func TestLooksSafeToDelete(t *testing.T) {
	assert.True(t, util.LooksSafeToDelete("/mnt/apt/data/some_dir", 15, 3))
	assert.False(t, util.LooksSafeToDelete("/usr/local", 12, 3))
	assert.False(t, util.LooksSafeToDelete("relative/path/to/some/dir", 12, 3))
}

func TestContainsControlCharacter(t *testing.T) {
	controls := []string{
		"\u0000 -- NULL",
		"\u0007 -- BELL",
		"\u0009 -- CHARACTER TABULATION",
		"\u000A -- LINE FEED (LF)",
		"\u001B -- ESCAPE",
		"\u007F -- DELETE",
		"\u0085 -- NEXT LINE (NEL)",
		"\u009F -- APPLICATION PROGRAM COMMAND",
		"content/datastream\u007f.pdf",
	}
	for _, str := range controls {
		assert.True(t, util.ContainsControlCharacter(str), str)
	}
	assert.False(t, util.ContainsControlCharacter("content/ID42/document.pdf"))
	assert.False(t, util.ContainsControlCharacter("Contenu/été/Rapport n°3.odt"))
}

func TestContainsEscapedControl(t *testing.T) {
	escaped := []string{
		"\\u0000 -- NULL",
		"\\u001b -- ESCAPE",
		"\\u007F -- DELETE",
		"\\u0085 -- NEXT LINE (NEL)",
		"content/datastream\\u0090.pdf",
	}
	for _, str := range escaped {
		assert.True(t, util.ContainsEscapedControl(str), str)
	}
	assert.False(t, util.ContainsEscapedControl("content/ID42/document.pdf"))
	assert.False(t, util.ContainsEscapedControl("\\u00e9t\\u00e9"))
}
