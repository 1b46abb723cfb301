package dispatcher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"strings"
)

// Content types with special handling.
const (
	ContentTypeJSON  = "application/json"
	ContentTypeTarGz = "application/x-tar-gz"
)

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.EqualFold(strings.TrimSpace(contentType), ContentTypeJSON)
	}
	return mediaType == ContentTypeJSON
}

// encodeBody serializes body for the wire. Under a JSON content-type,
// readers, byte slices and json.RawMessage are taken as already encoded and
// everything else is marshalled. Other content types accept only readers,
// byte slices and strings.
func encodeBody(contentType string, body any) (io.Reader, error) {
	if body == nil {
		return nil, nil
	}

	switch v := body.(type) {
	case io.Reader:
		return v, nil
	case json.RawMessage:
		return bytes.NewReader(v), nil
	case []byte:
		return bytes.NewReader(v), nil
	}

	if isJSON(contentType) {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(data), nil
	}

	if s, ok := body.(string); ok {
		return strings.NewReader(s), nil
	}
	return nil, fmt.Errorf("body of type %T cannot be sent as %q", body, contentType)
}

// decodeJSON parses data into generic Go values. An empty body decodes to
// nil without error.
func decodeJSON(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// eventBody is the request body as reported in diagnostics. Readers are not
// consumed.
func eventBody(body any) any {
	switch v := body.(type) {
	case io.Reader:
		return fmt.Sprintf("<%T>", v)
	case json.RawMessage:
		return string(v)
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(v))
	}
	return body
}
