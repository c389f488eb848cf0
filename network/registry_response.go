package network

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/APTrust/transfer-services/models/service"
)

// RegistryResponse wraps the result of a call to the unit registry.
type RegistryResponse struct {
	// Count is the total number of units matching the filters of a
	// list request. The response may hold fewer than Count units.
	Count int

	// The URL of the next page of results.
	Next *string

	// The URL of the previous page of results.
	Previous *string

	// The HTTP request that was (or would have been) sent to the
	// registry. This is useful for logging and debugging.
	Request *http.Request

	// The HTTP response from the server. Do not read Response.Body,
	// since it has already been read and closed. Use RawResponseData
	// instead.
	Response *http.Response

	// The error, if any, that occurred while processing this request.
	// Errors may come from the server (4xx or 5xx responses) or from
	// the client (e.g. if it could not parse the JSON response).
	Error error

	units []*service.ExistingUnit

	hasBeenRead       bool
	listHasBeenParsed bool
	data              []byte
}

// NewRegistryResponse creates a new RegistryResponse and returns a
// pointer to it.
func NewRegistryResponse() *RegistryResponse {
	return &RegistryResponse{}
}

// RawResponseData returns the raw body of the HTTP response as a byte
// slice. The return value may be nil.
func (resp *RegistryResponse) RawResponseData() ([]byte, error) {
	if !resp.hasBeenRead {
		resp.readResponse()
	}
	return resp.data, resp.Error
}

// readResponse reads and closes the body of the HTTP response. The body
// MUST be closed, or the connection stays open.
func (resp *RegistryResponse) readResponse() {
	if !resp.hasBeenRead && resp.Response != nil && resp.Response.Body != nil {
		resp.data, resp.Error = io.ReadAll(resp.Response.Body)
		resp.Response.Body.Close()
		resp.hasBeenRead = true
	}
}

// ObjectNotFound returns true if the registry replied with 404/Not Found.
func (resp *RegistryResponse) ObjectNotFound() bool {
	return resp.Response != nil && resp.Response.StatusCode == http.StatusNotFound
}

// HasNextPage returns true if the response links to a next page.
func (resp *RegistryResponse) HasNextPage() bool {
	return resp.Next != nil && *resp.Next != ""
}

// ParamsForNextPage returns the URL parameters to request the next
// page of results, or nil if there is no next page.
func (resp *RegistryResponse) ParamsForNextPage() url.Values {
	if resp.HasNextPage() {
		nextURL, _ := url.Parse(*resp.Next)
		if nextURL != nil {
			return nextURL.Query()
		}
	}
	return nil
}

// Unit returns the unit parsed from the HTTP response body, or nil.
func (resp *RegistryResponse) Unit() *service.ExistingUnit {
	if len(resp.units) > 0 {
		return resp.units[0]
	}
	return nil
}

// Units returns the units parsed from the HTTP response body.
func (resp *RegistryResponse) Units() []*service.ExistingUnit {
	if resp.units == nil {
		return make([]*service.ExistingUnit, 0)
	}
	return resp.units
}

// UnmarshalJSONList converts a registry list response into units. The
// list response has this structure:
//
//	{
//	  "count": 500,
//	  "next": "https://example.com/units?per_page=20&page=11",
//	  "previous": "https://example.com/units?per_page=20&page=9",
//	  "results": [... array of units ...]
//	}
func (resp *RegistryResponse) UnmarshalJSONList() error {
	if resp.listHasBeenParsed {
		return nil
	}
	temp := struct {
		Count    int                     `json:"count"`
		Next     *string                 `json:"next"`
		Previous *string                 `json:"previous"`
		Results  []*service.ExistingUnit `json:"results"`
	}{0, nil, nil, nil}
	data, err := resp.RawResponseData()
	if err != nil {
		resp.Error = err
		return err
	}
	resp.Error = json.Unmarshal(data, &temp)
	resp.Count = temp.Count
	resp.Next = temp.Next
	resp.Previous = temp.Previous
	resp.units = temp.Results
	resp.listHasBeenParsed = true
	return resp.Error
}
