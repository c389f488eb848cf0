package workers_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/APTrust/transfer-services/util/testutil"
	"github.com/nsqio/go-nsq"
)

var RedisTestServer *testutil.RedisServer
var S3TestServer *testutil.S3Server
var NsqTestServer *nsqdServer

func TestMain(m *testing.M) {
	RedisTestServer = testutil.NewRedisServer()
	S3TestServer = testutil.NewS3Server()
	NsqTestServer = newNsqdServer()
	exitCode := m.Run()
	RedisTestServer.Close()
	S3TestServer.Close()
	NsqTestServer.Close()
	os.Exit(exitCode)
}

// nsqdServer records what workers publish through nsqd's /pub.
type nsqdServer struct {
	*httptest.Server
	mutex     sync.Mutex
	published map[string][]string
}

func newNsqdServer() *nsqdServer {
	s := &nsqdServer{published: make(map[string][]string)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		topic := r.URL.Query().Get("topic")
		s.mutex.Lock()
		s.published[topic] = append(s.published[topic], string(body))
		s.mutex.Unlock()
		w.Write([]byte("OK"))
	}))
	return s
}

func (s *nsqdServer) Published(topic string) []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string{}, s.published[topic]...)
}

// messageDelegate stands in for the nsqd connection behind a message.
type messageDelegate struct {
	finished chan bool
	requeued chan time.Duration
	touched  chan bool
}

func (d *messageDelegate) OnFinish(m *nsq.Message) {
	d.finished <- true
}

func (d *messageDelegate) OnRequeue(m *nsq.Message, delay time.Duration, backoff bool) {
	d.requeued <- delay
}

func (d *messageDelegate) OnTouch(m *nsq.Message) {
	select {
	case d.touched <- true:
	default:
	}
}

func newMessage(body string) (*nsq.Message, *messageDelegate) {
	delegate := &messageDelegate{
		finished: make(chan bool, 1),
		requeued: make(chan time.Duration, 1),
		touched:  make(chan bool, 1),
	}
	var id nsq.MessageID
	copy(id[:], "0123456789abcdef")
	message := nsq.NewMessage(id, []byte(body))
	message.Delegate = delegate
	return message, delegate
}
