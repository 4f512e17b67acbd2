package model

import "errors"

var (
	// ErrSymbolInvalid indicates the input symbol was empty or malformed
	ErrSymbolInvalid = errors.New("symbol is invalid")

	// ErrSymbolExists indicates the symbol is already registered; this is an
	// expected outcome of concurrent or repeated registration, not a failure
	ErrSymbolExists = errors.New("symbol already exists")

	// ErrSymbolNotFound indicates the symbol has never been registered
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrIntegrity indicates a storage invariant was violated, such as a
	// single-symbol lookup returning more than one row
	ErrIntegrity = errors.New("storage integrity violation")
)
