package config

const (
	// Product names the directory under the XDG config and state homes.
	Product = "docspell"

	// FileName is the command file inside the product config directory.
	FileName = "ds.cmd"

	// DefaultCommand is used when no command file is present or readable.
	DefaultCommand = "ds.sh"
)

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{Command: DefaultCommand}
}
