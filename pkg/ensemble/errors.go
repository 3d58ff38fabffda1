package ensemble

import "errors"

// Orchestration-level failures. Adapter failures never surface as errors;
// they are carried as error-kind responses. Only these two conditions fail
// an orchestration call.
var (
	// ErrNoViableResponse means every requested model failed or none
	// produced usable content.
	ErrNoViableResponse = errors.New("no viable response from any model")

	// ErrUnknownModel means a requested model identifier is not registered
	// in the provider catalog.
	ErrUnknownModel = errors.New("unknown model identifier")
)
