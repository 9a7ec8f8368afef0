/*
Package req provides helpers for HTTP request parsing and data binding.

It wraps JSON body decoding with strict field handling and size limits so
handlers receive either a fully valid struct or a classified CustomError.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"chatflow/internal/pkg/errs"
)

// MaxBodyBytes caps the request body size enforced by BindJSON (1 MB).
const MaxBodyBytes int64 = 1 << 20

// BindJSON binds the JSON request body to the destination struct dst.
// Unknown fields and trailing content are rejected.
func BindJSON(r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(nil, r.Body, MaxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
