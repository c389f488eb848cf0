package testutil

import (
	"strconv"

	"github.com/APTrust/transfer-services/constants"
	"github.com/alicebob/miniredis/v2"
)

// RedisServer is an in-memory Redis standing in for the parse result
// store and the shared id sequence.
type RedisServer struct {
	mini *miniredis.Miniredis
}

// NewRedisServer starts a server on a free port. It panics if the
// server cannot listen, since no Redis test can run without it.
func NewRedisServer() *RedisServer {
	mini, err := miniredis.Run()
	if err != nil {
		panic(err)
	}
	return &RedisServer{mini: mini}
}

func (s *RedisServer) Addr() string {
	return s.mini.Addr()
}

// SeedIDSequence makes last the most recently reserved id, as if
// earlier parses had already used everything up to it.
func (s *RedisServer) SeedIDSequence(last int64) {
	if err := s.mini.Set(constants.RedisKeyIDSequence, strconv.FormatInt(last, 10)); err != nil {
		panic(err)
	}
}

// IDSequence returns the last reserved id, or 0 before any reservation.
func (s *RedisServer) IDSequence() int64 {
	value, err := s.mini.Get(constants.RedisKeyIDSequence)
	if err != nil {
		return 0
	}
	last, _ := strconv.ParseInt(value, 10, 64)
	return last
}

// StoredFields returns the sorted field names of the hash kept for
// operationID. It is empty when nothing was stored.
func (s *RedisServer) StoredFields(operationID string) []string {
	fields, err := s.mini.HKeys(operationID)
	if err != nil {
		return []string{}
	}
	return fields
}

func (s *RedisServer) Close() {
	s.mini.Close()
}
