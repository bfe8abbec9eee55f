package services

import (
	"errors"
	"fmt"
)

// EnrichmentError wraps a failure of the external text-intelligence service.
// A message whose enrichment fails is never partially persisted; the error
// propagates so the transport redelivers.
type EnrichmentError struct {
	Stage string // keywords, category or embedding
	Err   error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("enrichment failed at %s: %v", e.Stage, e.Err)
}

func (e *EnrichmentError) Unwrap() error {
	return e.Err
}

// ErrInsufficientHistory is returned by the recommender when the user has no
// liked or viewed article with an embedding. It is a precondition failure on
// the caller's side, not a system fault.
var ErrInsufficientHistory = errors.New("insufficient interaction history")
