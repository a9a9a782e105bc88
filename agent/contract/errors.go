package contract

import (
	"errors"

	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
)

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")
	ErrToolAgent       = errors.New("tool agent failed")
	ErrNoResult        = errors.New("tool agent produced no result")
	ErrUnknownAgent    = errors.New("unknown agent capability")

	ErrClassificationAmbiguity = envelopex.ErrClassificationAmbiguity
)
