// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

// Package validation provides struct validation using go-playground/validator v10.
// It holds a thread-safe singleton validator with the identifier formats of
// the order dataset registered as custom tags:
//
//	customer_id   CUST<digits>
//	warehouse_id  WH<digits>
//	product_id    Product_<digits>
//	sku_id        SKU_<digits>
//	orderdate     any layout models.ParseDate accepts
//
// Patterns must match the whole value. Field names in errors are taken from
// the json tag so messages name the wire field ("Customer ID").
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/orderwise/internal/models"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Identifier patterns. Anchored so a value must match in full.
var (
	customerIDPattern  = regexp.MustCompile(`^CUST\d+$`)
	warehouseIDPattern = regexp.MustCompile(`^WH\d+$`)
	productIDPattern   = regexp.MustCompile(`^Product_\d+$`)
	skuIDPattern       = regexp.MustCompile(`^SKU_\d+$`)
)

// ValidationError represents a single field validation error.
type ValidationError struct {
	field   string
	tag     string
	param   string
	value   interface{}
	message string
}

// Field returns the wire name of the field that failed validation.
func (e *ValidationError) Field() string { return e.field }

// Tag returns the validation tag that failed.
func (e *ValidationError) Tag() string { return e.tag }

// Param returns the parameter for the validation tag (e.g., "0" for "gt=0").
func (e *ValidationError) Param() string { return e.param }

// Value returns the actual value that failed validation.
func (e *ValidationError) Value() interface{} { return e.value }

func (e *ValidationError) Error() string { return e.message }

// RequestValidationError is the collection of field errors for one struct.
type RequestValidationError struct {
	errors []ValidationError
}

// Errors returns the slice of validation errors.
func (ve *RequestValidationError) Errors() []ValidationError {
	return ve.errors
}

func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(ve.errors))
	for i := range ve.errors {
		messages[i] = ve.errors[i].Error()
	}
	return strings.Join(messages, "; ")
}

// ToModelError converts the collection into the domain ValidationError so
// callers can match it with errors.Is(err, models.ErrValidation).
func (ve *RequestValidationError) ToModelError() *models.ValidationError {
	fields := make([]models.FieldError, len(ve.errors))
	for i, e := range ve.errors {
		fields[i] = models.FieldError{Field: e.field, Tag: e.tag, Message: e.message}
	}
	return &models.ValidationError{Fields: fields}
}

// GetValidator returns the singleton validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		mustRegister("customer_id", patternValidator(customerIDPattern))
		mustRegister("warehouse_id", patternValidator(warehouseIDPattern))
		mustRegister("product_id", patternValidator(productIDPattern))
		mustRegister("sku_id", patternValidator(skuIDPattern))
		mustRegister("orderdate", func(fl validator.FieldLevel) bool {
			_, err := models.ParseDate(fl.Field().String())
			return err == nil
		})
	})

	return validate
}

func mustRegister(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

func patternValidator(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// IsCustomerID reports whether s is a well-formed customer identifier.
func IsCustomerID(s string) bool { return customerIDPattern.MatchString(s) }

// ValidateStruct validates a struct using the singleton validator.
// Returns nil if validation passes.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{
			errors: []ValidationError{{field: "unknown", tag: "unknown", message: err.Error()}},
		}
	}

	fieldErrors := make([]ValidationError, len(validationErrs))
	for i, fieldErr := range validationErrs {
		fieldErrors[i] = ValidationError{
			field:   fieldErr.Field(),
			tag:     fieldErr.Tag(),
			param:   fieldErr.Param(),
			value:   fieldErr.Value(),
			message: translateError(fieldErr),
		}
	}
	return &RequestValidationError{errors: fieldErrors}
}

// errorMessageTemplates maps validation tags to message templates.
var errorMessageTemplates = map[string]string{
	"required":     "%s is required",
	"customer_id":  "%s must look like CUST<digits>",
	"warehouse_id": "%s must look like WH<digits>",
	"product_id":   "%s must look like Product_<digits>",
	"sku_id":       "%s must look like SKU_<digits>",
	"orderdate":    "%s must be a valid date (YYYY-MM-DD)",
}

// errorMessageWithParam maps validation tags to templates that include param.
var errorMessageWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"gt":    "%s must be greater than %s",
	"lt":    "%s must be less than %s",
	"min":   "%s must be at least %s",
	"max":   "%s must be at most %s",
}

func translateError(fe validator.FieldError) string {
	field := fe.Field()
	if template, ok := errorMessageTemplates[fe.Tag()]; ok {
		return fmt.Sprintf(template, field)
	}
	if template, ok := errorMessageWithParam[fe.Tag()]; ok {
		return fmt.Sprintf(template, field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
