package testutil

import (
	"os"
	"path/filepath"
	"runtime"
)

// ProjectRoot returns the absolute path of the repository root.
func ProjectRoot() string {
	_, thisFile, _, _ := runtime.Caller(0)
	absPath, _ := filepath.Abs(filepath.Join(filepath.Dir(thisFile), "..", ".."))
	return absPath
}

func PathToReferentialFixture() string {
	return filepath.Join(ProjectRoot(), "referential", "testdata", "referential.yml")
}

// WriteManifest saves the manifest b builds as dir/name and returns
// the file's path.
func WriteManifest(dir, name string, b *ManifestBuilder) (string, error) {
	manifestPath := filepath.Join(dir, name)
	return manifestPath, os.WriteFile(manifestPath, []byte(b.String()), 0644)
}
