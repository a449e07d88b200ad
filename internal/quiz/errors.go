package quiz

import "errors"

var (
	// ErrNoOperator is returned when a run is started with an empty operator set.
	ErrNoOperator = errors.New("no operator selected")
	// ErrRunInProgress is returned when a run is started while another is active.
	ErrRunInProgress = errors.New("run already in progress")
	// ErrConfigLocked is returned when configuration is edited during a run.
	ErrConfigLocked = errors.New("configuration is locked while a run is in progress")
	// ErrInvalidConfig wraps out-of-range configuration values.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvalidAnswer is returned when submitted input is not a number.
	ErrInvalidAnswer = errors.New("answer is not a number")
)
