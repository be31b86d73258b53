package sbclient

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// maxExcerptBytes caps the raw body quoted in a malformed_response error.
const maxExcerptBytes = 512

// ShortLink is a successfully created link. Fields the server omits are
// left empty.
type ShortLink struct {
	ShortLink string `json:"short_link"`
	Slug      string `json:"slug"`
	TargetURL string `json:"target_url"`
	Platform  string `json:"platform"`
	CreatedAt string `json:"created_at"`
}

// parseResponse maps a response to a ShortLink or an *APIError. It never
// fails on unexpected field types: anything that is not the documented
// shape becomes an empty field or a malformed_response error.
func parseResponse(status int, raw []byte) (*ShortLink, error) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		return nil, &APIError{
			Code:       CodeMalformedResponse,
			Message:    excerpt(raw),
			HTTPStatus: status,
		}
	}

	if status == http.StatusOK && truthy(body["success"]) {
		return &ShortLink{
			ShortLink: stringField(body["short_link"]),
			Slug:      stringField(body["slug"]),
			TargetURL: stringField(body["target_url"]),
			Platform:  stringField(body["platform"]),
			CreatedAt: stringField(body["created_at"]),
		}, nil
	}

	aerr := &APIError{
		Code:       stringField(body["code"]),
		Message:    stringField(body["message"]),
		HTTPStatus: status,
	}

	if aerr.Code == "" {
		aerr.Code = CodeUnknown
	}

	// The top-level status wins over data.status when both are present.
	declared := []int{statusField(body["status"])}

	var data map[string]json.RawMessage
	if json.Unmarshal(body["data"], &data) == nil {
		declared = append(declared, statusField(data["status"]))
	}

	for _, s := range declared {
		if s == 0 {
			continue
		}

		if aerr.DeclaredStatus == 0 {
			aerr.DeclaredStatus = s
		}

		if s != status {
			aerr.StatusMismatch = true
		}
	}

	return nil, aerr
}

// truthy follows the loose truthiness of the server: true, non-zero
// numbers and non-empty strings other than "0" and "false".
func truthy(raw json.RawMessage) bool {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return false
	}

	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != "" && t != "0" && !strings.EqualFold(t, "false")
	default:
		return false
	}
}

// stringField returns a JSON string as-is, other scalars in their JSON
// text form, and "" for null, objects, arrays and missing fields.
func stringField(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	switch raw[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}

		return ""
	case '{', '[', 'n':
		return ""
	default:
		return string(raw)
	}
}

// statusField reads an HTTP status given as a JSON number or numeric
// string. It returns 0 when absent or not a valid status.
func statusField(raw json.RawMessage) int {
	s := stringField(raw)
	if s == "" {
		return 0
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 100 || n > 599 {
		return 0
	}

	return n
}

func excerpt(raw []byte) string {
	if len(raw) <= maxExcerptBytes {
		return strings.ToValidUTF8(string(raw), "�")
	}

	return strings.ToValidUTF8(string(raw[:maxExcerptBytes]), "�") + "..."
}
