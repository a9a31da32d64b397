// Package server exposes the workspace over a REST API.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"

	apierrors "github.com/maruel/notedb/internal/errors"
)

// Wrap adapts a typed handler function to an http.Handler.
// The function must have signature func(context.Context, In) (*Out, error)
// where In is decoded from the JSON request body. Fields of In tagged
// `path:"name"` are filled from route parameters, fields tagged
// `query:"name"` from the query string.
func Wrap[In any, Out any](fn func(context.Context, In) (*Out, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		body, err := io.ReadAll(r.Body)
		if err2 := r.Body.Close(); err == nil {
			err = err2
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to read request body", "err", err)
			writeError(w, apierrors.BadRequest("Failed to read request body"))
			return
		}
		var input In
		if len(body) > 0 {
			d := json.NewDecoder(bytes.NewReader(body))
			d.DisallowUnknownFields()
			if err := d.Decode(&input); err != nil {
				slog.ErrorContext(ctx, "Failed to decode request body", "err", err)
				writeError(w, apierrors.BadRequest("Invalid request body"))
				return
			}
		}
		populateParams(r, &input)

		output, err := fn(ctx, input)
		if err != nil {
			slog.ErrorContext(ctx, "Handler error", "method", r.Method, "path", r.URL.Path, "err", err)
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(output); err != nil {
			slog.ErrorContext(ctx, "Failed to encode response", "err", err)
		}
	})
}

// populateParams fills struct fields tagged `path:"name"` from route
// parameters and `query:"name"` from the query string. Path parameters are
// strings; query parameters support string and int fields.
func populateParams(r *http.Request, input any) {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Ptr {
		return
	}
	elem := val.Elem()
	if elem.Kind() != reflect.Struct {
		return
	}
	query := r.URL.Query()
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		if tag := field.Tag.Get("path"); tag != "" {
			if v := r.PathValue(tag); v != "" && field.Type.Kind() == reflect.String {
				elem.Field(i).SetString(v)
			}
			continue
		}
		tag := field.Tag.Get("query")
		if tag == "" {
			continue
		}
		v := query.Get(tag)
		if v == "" {
			continue
		}
		switch field.Type.Kind() {
		case reflect.String:
			elem.Field(i).SetString(v)
		case reflect.Int:
			if n, err := strconv.Atoi(v); err == nil {
				elem.Field(i).SetInt(int64(n))
			}
		default:
			// Other types are not supported for query params.
		}
	}
}

// writeError writes a structured JSON error response. Errors implementing
// ErrorWithStatus keep their status, code and details; anything else maps to
// a 500.
func writeError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	code := apierrors.ErrInternal
	var details map[string]any

	var ews apierrors.ErrorWithStatus
	if errors.As(err, &ews) {
		statusCode = ews.StatusCode()
		code = ews.Code()
		details = ews.Details()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": err.Error(),
		},
	}
	if len(details) > 0 {
		response["details"] = details
	}
	_ = json.NewEncoder(w).Encode(response)
}
