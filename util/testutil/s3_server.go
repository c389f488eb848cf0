package testutil

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const StagingBucket = "staging"

type s3Object struct {
	data     []byte
	etag     string
	modified time.Time
}

// S3Server is an in-memory stand-in for the object store. It answers
// path-style GET, HEAD, PUT and DELETE on /bucket/key, which is all
// the manifest workers need.
type S3Server struct {
	server  *httptest.Server
	URL     string
	mutex   sync.RWMutex
	objects map[string]*s3Object
}

func NewS3Server() *S3Server {
	s := &S3Server{objects: make(map[string]*s3Object)}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	s.URL = s.server.URL
	return s
}

// Host returns the host:port minio clients connect to.
func (s *S3Server) Host() string {
	u, _ := url.Parse(s.URL)
	return u.Host
}

// Client returns a minio client pointed at this server.
func (s *S3Server) Client() *minio.Client {
	client, err := minio.New(s.Host(), &minio.Options{
		Creds:        credentials.NewStaticV4("test-key", "test-secret", ""),
		Secure:       false,
		Region:       "us-east-1",
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		panic(err)
	}
	return client
}

// Put stores data under bucket/key.
func (s *S3Server) Put(bucket, key string, data []byte) {
	sum := md5.Sum(data)
	s.mutex.Lock()
	s.objects[bucket+"/"+key] = &s3Object{
		data:     data,
		etag:     hex.EncodeToString(sum[:]),
		modified: time.Now().UTC(),
	}
	s.mutex.Unlock()
}

// Has returns true if bucket/key exists.
func (s *S3Server) Has(bucket, key string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	_, ok := s.objects[bucket+"/"+key]
	return ok
}

func (s *S3Server) Close() {
	s.server.Close()
}

func (s *S3Server) handle(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	if !strings.Contains(path, "/") {
		// Bucket-level requests are not supported.
		writeS3Error(w, http.StatusNotImplemented, "NotImplemented", path)
		return
	}
	bucket, key, _ := strings.Cut(path, "/")
	switch r.Method {
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			writeS3Error(w, http.StatusInternalServerError, "InternalError", path)
			return
		}
		s.Put(bucket, key, data)
		s.mutex.RLock()
		w.Header().Set("ETag", `"`+s.objects[path].etag+`"`)
		s.mutex.RUnlock()
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		s.mutex.Lock()
		delete(s.objects, path)
		s.mutex.Unlock()
		w.WriteHeader(http.StatusNoContent)
	case http.MethodGet, http.MethodHead:
		s.mutex.RLock()
		obj, ok := s.objects[path]
		s.mutex.RUnlock()
		if !ok {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			writeS3Error(w, http.StatusNotFound, "NoSuchKey", path)
			return
		}
		w.Header().Set("ETag", `"`+obj.etag+`"`)
		w.Header().Set("Last-Modified", obj.modified.Format(http.TimeFormat))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(len(obj.data)))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			w.Write(obj.data)
		}
	default:
		writeS3Error(w, http.StatusMethodNotAllowed, "MethodNotAllowed", path)
	}
}

func writeS3Error(w http.ResponseWriter, status int, code, resource string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>%s</Message><Resource>/%s</Resource></Error>`,
		code, code, resource)
}
