package eval

// Status codes returned by the shell itself.
//
// POSIX only specifies the status code for [StatusCommandNotExecutable] and
// [StatusCommandNotFound] and the status code when a command was killed by a
// signal. Errors during expansion or redirection are only required to have
// status codes between 1 and 125.
//
// The practice of using 0 for no error is really well known, so we don't
// define a constant for it; code should just use 0.
const (
	// Same as dash and bash; zsh uses 1. Tested with: $sh -c 'if;'
	StatusSyntaxError = 2

	// Usage errors in builtins. Dash uses 2 for these as well.
	StatusBadCommandLine = 2

	StatusExpansionError   = 1
	StatusRedirectionError = 1

	// Not sure what other shells use for the following error conditions.
	StatusPipeError = 100
	StatusWaitError = 101
	StatusShellBug  = 102

	// Specified by POSIX.
	StatusCommandNotExecutable = 126
	StatusCommandNotFound      = 127
	StatusSignalBase           = 128
)
