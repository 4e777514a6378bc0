package metaini

import (
	_ "embed"
	"strings"
)

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort        = "Expand meta ini files into plain configurations"
	MsgExpandShort      = "Write one file per configuration of a meta ini file"
	MsgStaticShort      = "Print the static variations of a meta ini file"
	MsgStaticLong       = "Static prints the __static variations of a meta ini file, their executable suffixes and build guards, in the build system encoding. With --check it prints nothing and fails when the file has more than one static variation."
	MsgConvergenceShort = "Write the configurations of a convergence test"
	MsgConvergenceLong  = "Convergence groups the configurations of a meta ini file into tests that differ only in the key named by __CONVERGENCE_TEST.TestKey, writes them and prints the test ids."
	MsgCommandsShort    = "List the available pipeline commands"
	MsgSyntaxShort      = "Describe the meta ini file format"
	MsgVersionShort     = "Print version information"
	MsgCompletionShort  = "Generate shell completion script"

	// Status messages
	MsgWroteFile      = "wrote %s"
	MsgNoConfigs      = "every configuration of %s was excluded"
	MsgHasVariations  = "%s has static variations"
	MsgTestsFormat    = "%d convergence test(s)"
	MsgCommandsHeader = "Pipeline commands"

	// Flag descriptions
	MsgFlagVerbose           = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagConfig            = "Config file (default ./.metaini.toml or $XDG_CONFIG_HOME/metaini/config.toml)"
	MsgFlagIni               = "The meta ini file to expand"
	MsgFlagDir               = "Directory for the written files"
	MsgFlagCMake             = "Keep reserved keys and print the build system data to stdout"
	MsgFlagFormat            = "Output format (ini, toml, yaml)"
	MsgFlagMaxConfigurations = "Fail when a file expands to more configurations (0: no limit)"
	MsgFlagCheck             = "Only check for static variations: exit 1 when there are several"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/expand-long.txt
	msgExpandLongRaw string
	MsgExpandLong    = strings.TrimSpace(msgExpandLongRaw)

	//go:embed msgs/expand-example.txt
	msgExpandExampleRaw string
	MsgExpandExample    = strings.TrimRight(msgExpandExampleRaw, "\n")

	//go:embed msgs/completion-long.txt
	msgCompletionLongRaw string
	MsgCompletionLong    = strings.TrimSpace(msgCompletionLongRaw)

	//go:embed msgs/syntax.md
	MsgSyntax string
)
