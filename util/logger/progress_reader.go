package logger

import (
	"io"

	"github.com/op/go-logging"
)

const _10MB = int64(10485760)
const _100MB = int64(104857600)
const _1GB = int64(1073741824)

// ProgressReader wraps the reader of a manifest being downloaded and
// logs how much of it has been read, without flooding the log for
// small manifests.
type ProgressReader struct {
	reader         io.Reader
	logger         *logging.Logger
	totalBytes     int64
	fileSize       int64
	lastPctPrinted float64
	prefix         string
}

// NewProgressReader creates a new ProgressReader. fileSize may be
// zero or negative when unknown, in which case nothing is logged.
func NewProgressReader(reader io.Reader, logger *logging.Logger, prefix string, fileSize int64) *ProgressReader {
	return &ProgressReader{
		reader:   reader,
		logger:   logger,
		prefix:   prefix,
		fileSize: fileSize,
	}
}

func (r *ProgressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.totalBytes += int64(n)
	if r.fileSize > 0 {
		pctComplete := float64(r.totalBytes) / float64(r.fileSize) * 100
		if r.shouldPrint(pctComplete) {
			r.logger.Infof("%s : %d of %d bytes, %3.2f%% read",
				r.prefix, r.totalBytes, r.fileSize, pctComplete)
			r.lastPctPrinted = pctComplete
		}
	}
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (r *ProgressReader) BytesRead() int64 {
	return r.totalBytes
}

// Manifests under 10MB are parsed before anyone could read the log.
func (r *ProgressReader) shouldPrint(pctComplete float64) bool {
	diff := pctComplete - r.lastPctPrinted
	if r.fileSize > _1GB {
		return diff >= 5.0
	}
	if r.fileSize > _100MB {
		return diff >= 20.0
	}
	if r.fileSize > _10MB {
		return diff >= 50.0
	}
	return false
}
