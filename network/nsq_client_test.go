package network_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/APTrust/transfer-services/constants"
	"github.com/APTrust/transfer-services/network"
	"github.com/APTrust/transfer-services/util/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNSQEnqueue(t *testing.T) {
	var topic, body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pub", r.URL.Path)
		topic = r.URL.Query().Get("topic")
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.Write([]byte("OK"))
	}))
	defer server.Close()

	client := network.NewNSQClient(server.URL)
	require.Nil(t, client.Enqueue(constants.TopicManifestStore, "op-1"))
	assert.Equal(t, constants.TopicManifestStore, topic)
	assert.Equal(t, "op-1", body)

	err := client.Enqueue(constants.TopicManifestStore, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty operation id")
}

func TestNSQEnqueueRejected(t *testing.T) {
	server := httptest.NewServer(testutil.HttpStringResponder(http.StatusBadRequest, nil, "INVALID_TOPIC"))
	defer server.Close()

	err := network.NewNSQClient(server.URL).Enqueue("bad topic", "op-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status code 400")
	assert.Contains(t, err.Error(), "INVALID_TOPIC")
}

func TestNSQEnqueueUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	err := network.NewNSQClient(url).Enqueue(constants.TopicManifestStore, "op-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nsqd returned an error")
}
