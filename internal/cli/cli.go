package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandServe   Command = "serve"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandServe:   {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

// parentWindowFlag is appended by Chrome on Windows and carries no meaning here.
const parentWindowFlag = "--parent-window="

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
	// LaunchArgs holds browser-supplied arguments (caller origin, or manifest
	// path and extension id), which select serve.
	LaunchArgs []string
}

// Parse reads process arguments. With no command, or with arguments a browser
// passes when launching a native host, the result is CommandServe.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandServe}
	explicit := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case arg == "-h" || arg == "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
			explicit = true
		case arg == "--version":
			parsed.Command = CommandVersion
			explicit = true
		case arg == "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case strings.HasPrefix(arg, parentWindowFlag):
		case strings.HasPrefix(arg, "-"):
			return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
		default:
			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok || explicit || len(parsed.LaunchArgs) > 0 {
				parsed.LaunchArgs = append(parsed.LaunchArgs, arg)
				continue
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			explicit = true
			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
		}
	}

	if len(parsed.LaunchArgs) > 0 && parsed.Command != CommandServe {
		return Parsed{}, fmt.Errorf("unexpected arguments for %s: %s", parsed.Command, strings.Join(parsed.LaunchArgs, " "))
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [command]
  %[1]s <browser launch arguments>

Commands:
  serve     Run the native messaging loop on stdin/stdout (default)
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Flags:
  --config PATH   Command file path (default: $XDG_CONFIG_HOME/docspell/ds.cmd
                  when present, else ~/.config/docspell/ds.cmd)
  -h, --help      Show help
  --version       Show version

Each request is a file path; the configured command (default: ds.sh) is run as
"<command> <file>", the file is deleted, and the exit status is sent back.
`, binaryName)
}
