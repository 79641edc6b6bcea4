// Package config resolves, reads, validates, and defaults the bridge configuration.
package config

// Config is the runtime configuration captured once at startup.
type Config struct {
	// Command is the program invoked as `<Command> <file>` for each request.
	// A bare name is resolved through PATH when spawned.
	Command string
}

// Warning is a non-fatal load/validation message.
type Warning struct {
	Line    int
	Message string
}
