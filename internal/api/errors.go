// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/orderwise/internal/models"
)

// Error codes carried in ErrorResponse.Code.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeMalformedBody    = "MALFORMED_BODY"
	CodeDuplicateOrder   = "DUPLICATE_ORDER"
	CodeCustomerNotFound = "CUSTOMER_NOT_FOUND"
	CodeModelNotFound    = "MODEL_NOT_FOUND"
	CodeRecommendFailed  = "RECOMMENDATION_FAILED"
	CodeStoreError       = "STORE_ERROR"
	CodeInternal         = "INTERNAL_ERROR"
	CodeNotReady         = "NOT_READY"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail  string         `json:"detail"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// orderError maps an ingestion or lookup failure to a status and body.
func orderError(err error) (int, ErrorResponse) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Detail:  "Order validation failed.",
			Code:    CodeValidation,
			Details: map[string]any{"fields": verr.Fields},
		}
	case errors.Is(err, models.ErrDuplicateOrder):
		return http.StatusBadRequest, ErrorResponse{
			Detail: "Duplicate order line detected.",
			Code:   CodeDuplicateOrder,
		}
	case errors.Is(err, models.ErrStoreIO):
		return http.StatusInternalServerError, ErrorResponse{
			Detail: "Order store unavailable.",
			Code:   CodeStoreError,
		}
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Detail: "Internal server error.",
			Code:   CodeInternal,
		}
	}
}

// recommendError maps any recommendation failure to 404. The code still
// distinguishes the cause.
func recommendError(err error) ErrorResponse {
	switch {
	case errors.Is(err, models.ErrCustomerNotFound):
		return ErrorResponse{Detail: "Customer not found", Code: CodeCustomerNotFound}
	case errors.Is(err, models.ErrModelNotFound):
		return ErrorResponse{Detail: err.Error(), Code: CodeModelNotFound}
	default:
		return ErrorResponse{Detail: "Recommendation failed", Code: CodeRecommendFailed}
	}
}
