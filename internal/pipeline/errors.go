package pipeline

import (
	"errors"
	"fmt"
)

// Stage names one step of a report run.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageNormalize Stage = "normalize"
	StagePersist   Stage = "persist"
	StagePublish   Stage = "publish"
	StageExport    Stage = "export"
	StageDeliver   Stage = "deliver"
)

// Sentinels matched by errors.Is against a *StageError of the same stage.
var (
	ErrFetch       = errors.New("fetch failed")
	ErrNormalize   = errors.New("normalize failed")
	ErrPersistence = errors.New("persistence failed")
	ErrPublish     = errors.New("publish failed")
	ErrExport      = errors.New("export failed")
	ErrDelivery    = errors.New("delivery failed")
)

var stageSentinels = map[Stage]error{
	StageFetch:     ErrFetch,
	StageNormalize: ErrNormalize,
	StagePersist:   ErrPersistence,
	StagePublish:   ErrPublish,
	StageExport:    ErrExport,
	StageDeliver:   ErrDelivery,
}

// StageError tags a failure with the stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e.Stage.
func (e *StageError) Is(target error) bool {
	return stageSentinels[e.Stage] == target
}
