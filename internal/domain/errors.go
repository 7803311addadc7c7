package domain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel errors for keyring operations
var (
	// ErrValidation is returned when an input is malformed
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when an account or request doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an owner key already controls a wallet
	ErrConflict = errors.New("conflict")

	// ErrCollision is returned when the counterfactual address already holds code
	ErrCollision = errors.New("address collision")

	// ErrUnsupportedChain is returned for chains with neither defaults nor overrides
	ErrUnsupportedChain = errors.New("unsupported chain")

	// ErrUnsupportedMethod is returned for request methods the keyring doesn't handle
	ErrUnsupportedMethod = errors.New("unsupported method")

	// ErrConfig is returned when a supported chain lacks a required setting
	ErrConfig = errors.New("configuration error")

	// ErrSigningDenied is returned when the user declines an approval prompt
	ErrSigningDenied = errors.New("signing denied")
)

// ValidationError names the offending input field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for field
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

type CollisionError struct {
	Address common.Address
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("address %s already has code deployed, retry with a different salt", e.Address.Hex())
}

func (e *CollisionError) Is(target error) bool {
	return target == ErrCollision
}

type UnsupportedChainError struct {
	ChainID uint64
}

func (e *UnsupportedChainError) Error() string {
	return fmt.Sprintf("unsupported chain ID: %d", e.ChainID)
}

func (e *UnsupportedChainError) Is(target error) bool {
	return target == ErrUnsupportedChain
}

type UnsupportedMethodError struct {
	Method string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("EVM method '%s' not supported", e.Method)
}

func (e *UnsupportedMethodError) Is(target error) bool {
	return target == ErrUnsupportedMethod
}
