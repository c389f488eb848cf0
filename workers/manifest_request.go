package workers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/APTrust/transfer-services/constants"
	"github.com/go-playground/validator/v10"
)

var requestValidator = validator.New(validator.WithRequiredStructEnabled())

// ManifestRequest is the body of a manifest_parse_topic message.
type ManifestRequest struct {
	OperationID   string `json:"operation_id" validate:"required,max=128"`
	Bucket        string `json:"bucket" validate:"required"`
	Key           string `json:"key" validate:"required"`
	ContentRoot   string `json:"content_root,omitempty"`
	OperationKind string `json:"operation_kind,omitempty" validate:"omitempty,oneof=archive filing holding"`
}

// ParseManifestRequest decodes and checks a message body. A missing
// operation kind means archive.
func ParseManifestRequest(body []byte) (*ManifestRequest, error) {
	req := &ManifestRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		return nil, fmt.Errorf("Could not decode manifest request '%s': %v",
			strings.TrimSpace(string(body)), err)
	}
	if err := requestValidator.Struct(req); err != nil {
		return nil, fmt.Errorf("Invalid manifest request: %v", err)
	}
	if req.OperationKind == "" {
		req.OperationKind = constants.OperationArchive
	}
	return req, nil
}

func (req *ManifestRequest) ToJSON() string {
	data, _ := json.Marshal(req)
	return string(data)
}
