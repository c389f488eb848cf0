package network

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// NSQClient posts operation ids to nsqd topics. It only writes to the
// queue. Workers read through go-nsq consumers.
type NSQClient struct {
	URL        string
	httpClient *http.Client
}

// NSQClientInterface is the part of NSQClient workers depend on.
type NSQClientInterface interface {
	Enqueue(topic string, operationID string) error
}

// NewNSQClient returns a client for the nsqd HTTP address at url,
// which usually ends with :4151.
func NewNSQClient(url string) *NSQClient {
	return &NSQClient{
		URL:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Enqueue puts operationID into topic, for example
// manifest_store_topic.
func (client *NSQClient) Enqueue(topic string, operationID string) error {
	if operationID == "" {
		return fmt.Errorf("Cannot queue an empty operation id to %s", topic)
	}
	return client.enqueueString(topic, operationID)
}

func (client *NSQClient) enqueueString(topic string, data string) error {
	pubURL := fmt.Sprintf("%s/pub?topic=%s", client.URL, url.QueryEscape(topic))
	resp, err := client.httpClient.Post(pubURL, "text/plain", bytes.NewBufferString(data))
	if err != nil {
		return fmt.Errorf("Nsqd returned an error when queuing data: %v", err)
	}

	// nsqd sends a simple OK. The body must be read, or the
	// connection stays open.
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyText := "[no response body]"
		if len(body) > 0 {
			bodyText = string(body)
		}
		return fmt.Errorf("nsqd returned status code %d when attempting to queue data. "+
			"Response body: %s", resp.StatusCode, bodyText)
	}
	return nil
}
