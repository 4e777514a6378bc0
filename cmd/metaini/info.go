package metaini

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/metaini/pkg/builtins"
	"github.com/arthur-debert/metaini/pkg/command"
	"github.com/arthur-debert/metaini/pkg/ui"
)

func newCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "commands",
		Short:   MsgCommandsShort,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := ui.NewRenderer(ui.FormatAuto, cmd.OutOrStdout())
			if r.Rich() {
				r.Message("Header", MsgCommandsHeader)
			}
			return r.Table(
				[]string{"Name", "Phase", "Mode", "Args", "Description"},
				commandRows(builtins.NewRegistry()),
			)
		},
	}
}

// commandRows lists the commands of reg in the order they run.
func commandRows(reg *command.Registry) [][]string {
	var rows [][]string
	for _, c := range reg.Commands() {
		args := strconv.Itoa(c.ArgCount)
		if defaults := strings.Join(c.ArgDefaults, ","); strings.Trim(defaults, ",") != "" {
			args += " (" + defaults + ")"
		}
		rows = append(rows, []string{c.Name, c.Phase.String(), c.Mode(), args, c.Description})
	}
	return rows
}

func newSyntaxCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "syntax",
		Short:   MsgSyntaxShort,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ui.NewRenderer(ui.FormatAuto, cmd.OutOrStdout()).Markdown(MsgSyntax)
		},
	}
}
