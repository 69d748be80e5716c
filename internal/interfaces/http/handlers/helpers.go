package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/interfaces/http/dto"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind domainErrors.Kind) int {
	switch kind {
	case domainErrors.KindValidation:
		return http.StatusBadRequest
	case domainErrors.KindInsufficientStock:
		return http.StatusConflict
	case domainErrors.KindTransactionNotFound:
		return http.StatusNotFound
	case domainErrors.KindProductNotFound:
		return http.StatusNotFound
	case domainErrors.KindTransactionAlreadyFinished:
		return http.StatusConflict
	case domainErrors.KindGateway:
		return http.StatusBadGateway
	case domainErrors.KindPersistence:
		return http.StatusServiceUnavailable
	case domainErrors.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := domainErrors.KindOf(err)
	resp := dto.ErrorResponse{Code: kind.String()}

	switch kind {
	case domainErrors.KindValidation:
		resp.Error = err.Error()
		var ve *domainErrors.ValidationError
		if errors.As(err, &ve) {
			resp.Field = ve.Field
		}
	case domainErrors.KindGateway:
		resp.Error = "payment gateway unavailable"
		log.Warn().Err(err).Msg("gateway failure")
	case domainErrors.KindPersistence:
		resp.Error = "storage unavailable"
		log.Error().Err(err).Msg("persistence failure")
	case domainErrors.KindInternal:
		resp.Error = "internal server error"
		log.Error().Err(err).Msg("unhandled error in handler")
	default:
		resp.Error = err.Error()
	}

	writeJSON(w, StatusFor(kind), resp)
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domainErrors.NewValidationError("body", "invalid JSON")
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return domainErrors.NewValidationError(ve[0].Namespace(), ve[0].Tag()+" validation failed")
		}
		return domainErrors.NewValidationError("body", err.Error())
	}
	return nil
}

// pageParams reads limit and offset. Bad numbers are validation errors;
// range clamping is left to the use cases.
func pageParams(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if s := q.Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil {
			return 0, 0, domainErrors.NewValidationError("limit", "must be an integer")
		}
	}
	if s := q.Get("offset"); s != "" {
		if offset, err = strconv.Atoi(s); err != nil {
			return 0, 0, domainErrors.NewValidationError("offset", "must be an integer")
		}
	}
	return limit, offset, nil
}
