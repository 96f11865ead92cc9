package jsonapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// MaxBodyBytes caps request bodies read by DecodeResource.
const MaxBodyBytes = 1 << 20

// RequestResource is the primary data of an incoming document.
type RequestResource struct {
	Type       string          `json:"type"`
	ID         string          `json:"id,omitempty"`
	Attributes json.RawMessage `json:"attributes"`
}

type requestDocument struct {
	Data *RequestResource `json:"data"`
}

// DecodeResource reads {"data": {"type": ..., "attributes": {...}}} from r
// and unmarshals the attributes into attrs. Plain application/json bodies
// are accepted as well. A non-nil Error is ready to be written back.
func DecodeResource(r *http.Request, resourceType string, attrs any) *Error {
	return decodeResource(r, resourceType, attrs, false)
}

// DecodeOptionalResource is DecodeResource for endpoints whose body may be
// left out. An empty body, whatever its Content-Length, leaves attrs untouched.
func DecodeOptionalResource(r *http.Request, resourceType string, attrs any) *Error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	return decodeResource(r, resourceType, attrs, true)
}

func decodeResource(r *http.Request, resourceType string, attrs any, allowEmpty bool) *Error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || (mt != ContentType && mt != "application/json") {
			e := ErrUnsupportedMediaType(ct)
			return &e
		}
	}

	var doc requestDocument
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			if allowEmpty {
				return nil
			}
			e := ErrBadRequest("request body is empty")
			return &e
		}
		e := ErrBadRequest(fmt.Sprintf("invalid JSON: %v", err))
		return &e
	}
	if doc.Data == nil {
		e := ErrBadRequest("missing primary data")
		return &e
	}
	if doc.Data.Type != "" && doc.Data.Type != resourceType {
		e := NewError(409, "type_mismatch", "Conflict",
			fmt.Sprintf("expected resource type %q, got %q", resourceType, doc.Data.Type))
		return &e
	}
	if len(doc.Data.Attributes) == 0 {
		return nil
	}
	if err := json.Unmarshal(doc.Data.Attributes, attrs); err != nil {
		e := ErrBadRequest(fmt.Sprintf("invalid attributes: %v", err))
		return &e
	}
	return nil
}
