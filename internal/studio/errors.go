package studio

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTopic    = errors.New("topic cannot be empty")
	ErrEmptyOutline  = errors.New("outline cannot be empty")
	ErrEmptyQuestion = errors.New("question cannot be empty")
)

// Stage names a step of the generation pipeline.
type Stage string

const (
	StageOutline Stage = "outline"
	StageSummary Stage = "summary"
	StageAnswer  Stage = "answer"
)

// GenerationError reports a failed or abnormally terminated generation request.
// It is never retried and no partial output accompanies it.
type GenerationError struct {
	Stage Stage
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsGenerationFailure reports whether err came from a generation request.
func IsGenerationFailure(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}

func generationError(stage Stage, err error) error {
	return &GenerationError{Stage: stage, Err: err}
}
