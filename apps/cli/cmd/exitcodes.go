package cmd

// Exit codes for hitpad CLI
const (
	// ExitSuccess indicates the command completed
	ExitSuccess = 0

	// ExitFailure indicates an unclassified error
	ExitFailure = 1

	// ExitResponseError indicates a 4xx/5xx response when --fail is set
	ExitResponseError = 2

	// ExitConfigError indicates a configuration or environment store error
	ExitConfigError = 3

	// ExitNetworkError indicates the request could not be completed
	ExitNetworkError = 4

	// ExitCheckFailure indicates a failed schema check or bench threshold
	ExitCheckFailure = 5

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
