package network

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/APTrust/transfer-services/models/service"
	"github.com/op/go-logging"
)

// RegistryClient reads persisted archive units from the registry's
// admin REST API. It is the unit lookup the manifest parser uses for
// update operations and link parents.
type RegistryClient struct {
	HostURL    string
	APIVersion string
	APIUser    string
	APIKey     string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewRegistryClient creates a new registry client.
func NewRegistryClient(HostURL, APIVersion, APIUser, APIKey string, logger *logging.Logger) (*RegistryClient, error) {
	if HostURL == "" {
		return nil, fmt.Errorf("Registry URL cannot be empty")
	}
	// see security warning on nil PublicSuffixList here:
	// http://gotour.golang.org/src/pkg/net/http/cookiejar/jar.go?s=1011:1492#L24
	cookieJar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("Can't create cookie jar for HTTP client: %v", err)
	}
	transport := &http.Transport{
		DisableKeepAlives: false,
		ForceAttemptHTTP2: true,
		IdleConnTimeout:   30 * time.Second,
	}
	return &RegistryClient{
		HostURL:    strings.TrimSuffix(HostURL, "/"),
		APIVersion: APIVersion,
		APIUser:    APIUser,
		APIKey:     APIKey,
		logger:     logger,
		httpClient: &http.Client{Jar: cookieJar, Transport: transport, Timeout: 60 * time.Second},
	}, nil
}

// UnitByID returns the unit with the specified system id.
func (client *RegistryClient) UnitByID(systemID string) *RegistryResponse {
	relativeURL := fmt.Sprintf("/admin-api/%s/units/show/%s", client.APIVersion, url.PathEscape(systemID))
	resp := NewRegistryResponse()
	client.DoRequest(resp, "GET", client.BuildURL(relativeURL), nil)
	if resp.Error != nil {
		return resp
	}
	unit := &service.ExistingUnit{}
	resp.Error = json.Unmarshal(resp.data, unit)
	if resp.Error == nil {
		resp.units = []*service.ExistingUnit{unit}
	}
	return resp
}

// UnitList returns units matching the filters in params, which may
// name any indexed metadata field.
func (client *RegistryClient) UnitList(params url.Values) *RegistryResponse {
	relativeURL := fmt.Sprintf("/admin-api/%s/units?%s", client.APIVersion, encodeParams(params))
	resp := NewRegistryResponse()
	client.DoRequest(resp, "GET", client.BuildURL(relativeURL), nil)
	if resp.Error != nil {
		return resp
	}
	resp.UnmarshalJSONList()
	return resp
}

// ByID implements ingest.UnitLookup. A unit the registry does not know
// returns nil, nil.
func (client *RegistryClient) ByID(systemID string) (*service.ExistingUnit, error) {
	resp := client.UnitByID(systemID)
	if resp.ObjectNotFound() {
		return nil, nil
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Unit(), nil
}

// ByField implements ingest.UnitLookup. It fails when more than one
// unit carries the value, since the target would be ambiguous.
func (client *RegistryClient) ByField(name, value string) (*service.ExistingUnit, error) {
	params := url.Values{}
	params.Set(name, value)
	params.Set("per_page", "2")
	resp := client.UnitList(params)
	if resp.Error != nil {
		return nil, resp.Error
	}
	if resp.Count > 1 || len(resp.Units()) > 1 {
		return nil, fmt.Errorf("%d units have %s '%s'", max(resp.Count, len(resp.Units())), name, value)
	}
	return resp.Unit(), nil
}

// BuildURL combines the host and protocol in client.HostURL with
// relativeURL to create an absolute URL.
func (client *RegistryClient) BuildURL(relativeURL string) string {
	return client.HostURL + relativeURL
}

// NewJSONRequest returns a new request with headers indicating
// JSON request and response formats.
func (client *RegistryClient) NewJSONRequest(method, absoluteURL string, requestData io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(method, absoluteURL, requestData)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	req.Header.Add("X-Registry-API-User", client.APIUser)
	req.Header.Add("X-Registry-API-Key", client.APIKey)
	return req, nil
}

// DoRequest issues an HTTP request, reads the response, and closes the
// connection to the remote server. If an error occurs, it is recorded
// in resp.Error.
func (client *RegistryClient) DoRequest(resp *RegistryResponse, method, absoluteURL string, requestData io.Reader) {
	request, err := client.NewJSONRequest(method, absoluteURL, requestData)
	resp.Request = request
	if err != nil {
		resp.Error = fmt.Errorf("%s %s: %s", method, absoluteURL, err.Error())
		return
	}

	reqTime := time.Now()
	resp.Response, resp.Error = client.httpClient.Do(request)
	client.logger.Debugf("%s %s completed in %s", method, absoluteURL, time.Since(reqTime))
	if resp.Error != nil {
		resp.Error = fmt.Errorf("%s %s: %s", method, absoluteURL, resp.Error.Error())
		return
	}

	// Reading the body is the only way to release the connection.
	resp.readResponse()

	if resp.Error == nil && resp.Response.StatusCode >= 400 {
		body, _ := resp.RawResponseData()
		resp.Error = fmt.Errorf("Server returned status code %d. "+
			"%s %s - Body: %s",
			resp.Response.StatusCode, method, absoluteURL, string(body))
	}
}

func encodeParams(params url.Values) string {
	if params == nil {
		return ""
	}
	return params.Encode()
}
