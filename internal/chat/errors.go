package chat

import "errors"

var (
	// ErrInvalidInput indicates a missing or empty question. Handled at
	// the boundary with a fixed friendly message; never reaches the
	// pipeline.
	ErrInvalidInput = errors.New("invalid input")

	// ErrGeneration indicates the language model call failed or returned
	// unusable output. The conversation history is not updated in this
	// case; an answer is only appended when generation succeeded.
	ErrGeneration = errors.New("generation failed")
)
