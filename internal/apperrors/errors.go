package apperrors

import "errors"

// ErrNotFound indicates that a requested record could not be found in the ledger.
var ErrNotFound = errors.New("record not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrMalformedInput indicates an input line that could not be parsed or validated.
// Malformed lines are skipped; they never abort the batch.
var ErrMalformedInput = errors.New("malformed input record")

// ErrOversell indicates a sale exceeding the quantity available across open lots.
// Matching truncates at the point of violation; the household computation continues.
var ErrOversell = errors.New("sale quantity exceeds open lots")

// ErrUnsupportedJurisdiction indicates a state value outside the supported set.
// It fails the household, not the batch.
var ErrUnsupportedJurisdiction = errors.New("unsupported jurisdiction")

// ErrComputationFailure wraps any unexpected failure inside the per-household
// pipeline. It is recorded in the household status and never propagates across
// households.
var ErrComputationFailure = errors.New("tax computation failed")

// ErrStoreUnavailable indicates the ledger store cannot be reached.
// It is fatal to the whole batch.
var ErrStoreUnavailable = errors.New("ledger store unavailable")
