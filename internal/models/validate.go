package models

import "github.com/go-playground/validator/v10"

var structValidator = validator.New()

// ValidateStruct checks a model's validate tags. Used as a guard before
// persisting jobs so range violations (progress, score, confidence) are
// caught at the storage boundary.
func ValidateStruct(v interface{}) error {
	return structValidator.Struct(v)
}
