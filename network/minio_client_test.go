package network_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/APTrust/transfer-services/network"
	"github.com/APTrust/transfer-services/util/testutil"
	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchObject(t *testing.T) {
	manifest := []byte(`<?xml version="1.0"?><ArchiveTransfer/>`)
	S3TestServer.Put(testutil.StagingBucket, "op-fetch/manifest.xml", manifest)

	localPath := filepath.Join(t.TempDir(), "manifest.xml")
	written, err := network.FetchObject(context.Background(), S3TestServer.Client(),
		logging.MustGetLogger("minio_test"), testutil.StagingBucket, "op-fetch/manifest.xml", localPath)
	require.Nil(t, err)
	assert.Equal(t, int64(len(manifest)), written)

	data, err := os.ReadFile(localPath)
	require.Nil(t, err)
	assert.Equal(t, manifest, data)
}

func TestFetchObjectMissing(t *testing.T) {
	localPath := filepath.Join(t.TempDir(), "manifest.xml")
	_, err := network.FetchObject(context.Background(), S3TestServer.Client(),
		logging.MustGetLogger("minio_test"), testutil.StagingBucket, "op-missing/manifest.xml", localPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "StatObject")
	assert.NoFileExists(t, localPath)
}
