// Package sentinel holds the store-level facts that services translate into
// domain errors. Stores return them, optionally wrapped; request validation
// belongs in pkg/domain-errors instead.
package sentinel

import "errors"

var (
	// ErrNotFound: no organization, ledger entry or pool row with that key.
	ErrNotFound = errors.New("not found")
	// ErrConflict: the id already exists.
	ErrConflict = errors.New("conflict")
	// ErrInsufficientBalance: a reservation would take a credit pool below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidState: a ledger entry was already committed or released.
	ErrInvalidState = errors.New("invalid state")
)
