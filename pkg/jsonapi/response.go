package jsonapi

import (
	"encoding/json"
	"net/http"
)

// WriteDocument writes a JSON:API document to the response.
func WriteDocument(w http.ResponseWriter, status int, doc Document) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(doc)
}

// WriteResource writes a single resource response.
func WriteResource(w http.ResponseWriter, status int, r Resource) {
	WriteDocument(w, status, NewSingleResourceDocument(r))
}

// WriteCollection writes a collection response with optional pagination.
func WriteCollection(w http.ResponseWriter, status int, resources []Resource, p *Pagination) {
	WriteDocument(w, status, NewCollectionDocument(resources, p))
}

// WriteCreated writes a 201 Created response with the resource and optional Location header.
func WriteCreated(w http.ResponseWriter, r Resource, location string) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	WriteResource(w, http.StatusCreated, r)
}

// WriteNoContent writes a 204 No Content response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteMeta writes a response with only metadata (no data).
func WriteMeta(w http.ResponseWriter, status int, meta Meta) {
	WriteDocument(w, status, Document{Meta: meta, JSONAPI: &JSONAPI{Version: Version}})
}

// WriteError writes an error response with one or more errors.
// The HTTP status is derived from the first error's status field.
func WriteError(w http.ResponseWriter, errs ...Error) {
	if len(errs) == 0 {
		errs = []Error{ErrInternal("")}
	}

	status := errs[0].StatusCode()
	if status == 0 {
		status = http.StatusInternalServerError
	}
	WriteDocument(w, status, NewErrorDocument(errs...))
}
