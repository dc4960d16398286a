// Package errors provides the classified error primitives used across docprep.
//
// A ClassifiedError carries a category (config, validation, extract, ...),
// a severity and free-form context. The CLI adapter turns categories into
// process exit codes so scripts wrapping docprep can tell a bad config file
// apart from a failed doxygen run.
//
// Example usage:
//
//	err := errors.WrapError(runErr, errors.CategoryExtract, "doxygen pass failed").
//		WithContext("pass", pass.Name).
//		WithContext("dir", pass.Dir).
//		Build()
package errors
