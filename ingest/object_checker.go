package ingest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/APTrust/transfer-services/constants"
	"github.com/APTrust/transfer-services/models/service"
	"github.com/APTrust/transfer-services/util"
	"github.com/richardlehane/siegfried"
)

// FileObjectChecker verifies binary objects against the payload files
// under a content root. Format identification runs only when a
// siegfried signature file was loaded.
type FileObjectChecker struct {
	Siegfried *siegfried.Siegfried
}

// NewFileObjectChecker returns a checker. If signatureFile is empty,
// formats are not identified.
func NewFileObjectChecker(signatureFile string) (*FileObjectChecker, error) {
	checker := &FileObjectChecker{}
	if signatureFile == "" {
		return checker, nil
	}
	sf, err := siegfried.Load(signatureFile)
	if err != nil {
		return nil, fmt.Errorf("Cannot load siegfried signature file %s: %s", signatureFile, err.Error())
	}
	checker.Siegfried = sf
	return checker, nil
}

// CheckBinaryObject checks that obj's Uri names a file under
// contentRoot, reconciles its size and digest, and identifies its
// format. A declared size of zero is replaced by the size on disk.
func (c *FileObjectChecker) CheckBinaryObject(obj *service.BinaryObject, contentRoot string) error {
	if obj.URI == "" {
		return fmt.Errorf("DataObject '%s' has no Uri", obj.XMLID)
	}
	path, err := payloadPath(contentRoot, obj.URI)
	if err != nil {
		return fmt.Errorf("DataObject '%s': %s", obj.XMLID, err.Error())
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("DataObject '%s': payload %s: %s", obj.XMLID, obj.URI, err.Error())
	}
	if obj.Size == 0 {
		obj.Size = info.Size()
	} else if obj.Size != info.Size() {
		return fmt.Errorf("DataObject '%s' declares size %d but %s has %d bytes",
			obj.XMLID, obj.Size, obj.URI, info.Size())
	}
	if obj.Digest != "" {
		if err := c.checkDigest(obj, path); err != nil {
			return err
		}
	}
	if c.Siegfried != nil {
		return c.identify(obj, path)
	}
	return nil
}

func (c *FileObjectChecker) checkDigest(obj *service.BinaryObject, path string) error {
	digestHash, err := newHash(obj.DigestAlgorithm)
	if err != nil {
		return fmt.Errorf("DataObject '%s': %s", obj.XMLID, err.Error())
	}
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := io.Copy(digestHash, file); err != nil {
		return err
	}
	actual := fmt.Sprintf("%x", digestHash.Sum(nil))
	if !strings.EqualFold(actual, obj.Digest) {
		return fmt.Errorf("DataObject '%s' declares %s digest %s but %s has %s",
			obj.XMLID, obj.DigestAlgorithm, obj.Digest, obj.URI, actual)
	}
	return nil
}

// identify fills in an undeclared format and rejects a declared
// format that does not match the identified one.
func (c *FileObjectChecker) identify(obj *service.BinaryObject, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	name := obj.Filename
	if name == "" {
		name = filepath.Base(path)
	}
	ids, err := c.Siegfried.Identify(file, name, "")
	if err != nil {
		return fmt.Errorf("DataObject '%s': format identification failed: %s", obj.XMLID, err.Error())
	}
	for _, id := range ids {
		if !id.Known() {
			continue
		}
		identified := id.String()
		if obj.FormatID == "" {
			obj.FormatID = identified
			return nil
		}
		if obj.FormatID != identified {
			return fmt.Errorf("DataObject '%s' declares format %s but %s was identified as %s",
				obj.XMLID, obj.FormatID, obj.URI, identified)
		}
		return nil
	}
	return nil
}

// payloadPath resolves uri under contentRoot and refuses paths that
// escape it.
func payloadPath(contentRoot, uri string) (string, error) {
	if util.ContainsControlCharacter(uri) || util.ContainsEscapedControl(uri) {
		return "", fmt.Errorf("Uri %q contains control characters", uri)
	}
	root := filepath.Clean(contentRoot)
	path := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(uri, "file://")))
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("Uri %s points outside the content root", uri)
	}
	return path, nil
}

func newHash(algorithm string) (hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case constants.AlgMd5:
		return md5.New(), nil
	case constants.AlgSha1:
		return sha1.New(), nil
	case constants.AlgSha256:
		return sha256.New(), nil
	case constants.AlgSha512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported digest algorithm '%s'", algorithm)
	}
}
