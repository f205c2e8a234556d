package server

import (
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/smallbiznis/pulse/internal/metricdate"
)

func parseOptionalTime(value string) (*time.Time, error) {
	return parseTimeField("as_of", value)
}

func parseTimeField(field, value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, newValidationError(field, "invalid_"+field, field+" must be RFC3339")
	}
	return &parsed, nil
}

func parseOptionalDate(field, value string) (*civil.Date, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := metricdate.Parse(trimmed)
	if err != nil {
		return nil, newValidationError(field, "invalid_"+field, field+" must be YYYY-MM-DD")
	}
	return &parsed, nil
}

func parseRequiredDate(field, value string) (civil.Date, error) {
	parsed, err := parseOptionalDate(field, value)
	if err != nil {
		return civil.Date{}, err
	}
	if parsed == nil {
		return civil.Date{}, newValidationError(field, "required", field+" is required")
	}
	return *parsed, nil
}
