package enrichment

import (
	"errors"
	"fmt"
)

type Stage string

const (
	StageDescribe  Stage = "describe"
	StageTranslate Stage = "translate"
	StageSummarize Stage = "summarize"
	StageClassify  Stage = "classify"
	StageEmbed     Stage = "embed"
)

var (
	ErrEmptyDescription = errors.New("product has no description")
	ErrEmptyTranslation = errors.New("translation returned no text")
	ErrNoClassifier     = errors.New("every classifier failed")
)

// StageError is a failed enrichment stage of one product. It never fails the
// sync job; it only decides what is persisted for the product.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
