package workflow

import "errors"

// ErrConfig is wrapped by every error caused by an unusable configuration.
var ErrConfig = errors.New("workflow: invalid configuration")

var (
	ErrNoEnergy               = configError("neither CM energy nor beam energy is set")
	ErrUnknownCollisionSystem = configError("unknown collision system")
	ErrPtHatBinRange          = configError("pt-hat bin out of range")
)

// Graph construction errors. These indicate a bug in a builder, not bad input.
var (
	ErrDuplicateStage     = errors.New("workflow: duplicate stage name")
	ErrDanglingDependency = errors.New("workflow: dependency on unknown stage")
	ErrCycle              = errors.New("workflow: dependency cycle")
	ErrTimeframeCrossing  = errors.New("workflow: stage depends on another timeframe")
)

type cfgErr struct{ msg string }

func configError(msg string) error { return &cfgErr{msg: msg} }

func (e *cfgErr) Error() string { return "workflow: " + e.msg }

// Is reports every configuration error as an ErrConfig.
func (e *cfgErr) Is(target error) bool { return target == ErrConfig }
