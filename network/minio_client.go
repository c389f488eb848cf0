package network

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/APTrust/transfer-services/util/logger"
	"github.com/minio/minio-go/v7"
	"github.com/op/go-logging"
)

/*
   The object-level part of the Minio client, defined as an interface so
   workers can be tested against fakes. See
   https://min.io/docs/minio/linux/developers/go/API.html

   Manifest workers only read transfers from the staging bucket. They
   have no business creating buckets or changing bucket policies.
*/

type MinioClientInterface interface {
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// FetchObject copies bucket/key to localPath and returns the number of
// bytes written. Progress on large manifests goes to log.
func FetchObject(ctx context.Context, client MinioClientInterface, log *logging.Logger, bucket, key, localPath string) (int64, error) {
	info, err := client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("StatObject %s/%s: %s", bucket, key, err.Error())
	}
	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("GetObject %s/%s: %s", bucket, key, err.Error())
	}
	defer obj.Close()

	file, err := os.Create(localPath)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	reader := logger.NewProgressReader(obj, log, fmt.Sprintf("%s/%s", bucket, key), info.Size)
	written, err := io.Copy(file, reader)
	if err != nil {
		return written, fmt.Errorf("Copying %s/%s to %s: %s", bucket, key, localPath, err.Error())
	}
	if info.Size > 0 && written != info.Size {
		return written, fmt.Errorf("Copied %d bytes of %s/%s, expected %d", written, bucket, key, info.Size)
	}
	return written, nil
}
