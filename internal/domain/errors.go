package domain

import "errors"

// Error kinds. ErrProviderUnavailable never surfaces out of the
// orchestrator: providers fall back to deterministic data internally,
// and no code path returns or logs it.
var (
	ErrEmptyInput = errors.New("empty_input")
	ErrProviderUnavailable = errors.New("provider_unavailable")
	ErrGraphEmpty = errors.New("graph_empty")
	ErrSimulationAborted = errors.New("simulation_aborted")
	ErrInvalidMarker = errors.New("invalid_marker")
)
