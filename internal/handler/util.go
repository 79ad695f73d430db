// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tenantworks/platform/internal/apperror"
	"github.com/tenantworks/platform/pkg/logger"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeServiceError maps the error taxonomy onto HTTP statuses in one
// place. Unknown errors are logged and reported as 500 without detail.
func writeServiceError(w http.ResponseWriter, log *logger.Logger, err error) {
	var ve *apperror.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"fields": ve.Fields,
		})
		return
	}
	if apperror.IsAuthorization(err) {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}
	if apperror.IsNotFound(err) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

// decodeValid decodes the JSON body into dst and runs struct validation.
func decodeValid(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.Validation("body", "invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = "failed on " + fe.Tag()
			}
			return &apperror.ValidationError{Fields: fields}
		}
		return apperror.Validation("body", err.Error())
	}
	return nil
}
