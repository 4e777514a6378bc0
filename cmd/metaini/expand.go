package metaini

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/metaini/pkg/builtins"
	"github.com/arthur-debert/metaini/pkg/cmakeoutput"
	"github.com/arthur-debert/metaini/pkg/config"
	"github.com/arthur-debert/metaini/pkg/convergence"
	"github.com/arthur-debert/metaini/pkg/errors"
	"github.com/arthur-debert/metaini/pkg/expansion"
	"github.com/arthur-debert/metaini/pkg/logging"
	"github.com/arthur-debert/metaini/pkg/static"
	"github.com/arthur-debert/metaini/pkg/ui"
	"github.com/arthur-debert/metaini/pkg/writer"
)

// writeFlags are shared by the commands writing configurations.
type writeFlags struct {
	ini   string
	cmake bool
}

func (f *writeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.ini, "ini", "i", "", MsgFlagIni)
	cmd.Flags().StringP("dir", "d", "", MsgFlagDir)
	cmd.Flags().BoolVarP(&f.cmake, "cmake", "c", false, MsgFlagCMake)
	cmd.Flags().StringP("format", "f", string(writer.FormatINI), MsgFlagFormat)
	_ = cmd.MarkFlagRequired("ini")
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		var names []string
		for _, format := range writer.Formats() {
			names = append(names, string(format))
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
}

// session holds what every command needs to expand one file.
type session struct {
	cfg  *config.Config
	opts []expansion.Option
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	opts := append(cfg.ExpansionOptions(), expansion.WithRegistry(builtins.NewRegistry()))
	return &session{cfg: cfg, opts: opts}, nil
}

func (s *session) writeOptions(cmake bool) expansion.WriteOptions {
	return expansion.WriteOptions{Dir: s.cfg.Output.Dir, CMake: cmake, Format: s.cfg.Output.Format}
}

func newExpandCmd() *cobra.Command {
	var flags writeFlags

	cmd := &cobra.Command{
		Use:     "expand",
		Short:   MsgExpandShort,
		Long:    MsgExpandLong,
		Example: MsgExpandExample,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpand(cmd, flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().Int("max-configurations", 0, MsgFlagMaxConfigurations)
	return cmd
}

func runExpand(cmd *cobra.Command, flags writeFlags) error {
	logger := logging.GetLogger("cmd.expand")
	defer logging.LogOperationStart(logger, "expand")()

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	info, err := static.Extract(flags.ini, s.opts...)
	if err != nil {
		return err
	}
	configs, err := expansion.Expand(flags.ini, s.opts...)
	if err != nil {
		return err
	}
	if len(configs) == 0 {
		return errors.Newf(errors.ErrSkip, MsgNoConfigs, flags.ini).WithDetail("file", flags.ini)
	}

	data := cmakeoutput.NewData()
	var written []string
	for _, c := range configs {
		path, err := expansion.WriteConfiguration(c, data, info, s.writeOptions(flags.cmake))
		if err != nil {
			return errors.WithFile(err, flags.ini)
		}
		written = append(written, path)
	}
	logger.Info().Str("file", flags.ini).Int("configurations", len(written)).Msg("Expanded")

	if flags.cmake {
		return cmakeoutput.Write(cmd.OutOrStdout(), data)
	}
	r := ui.NewRenderer(ui.FormatAuto, cmd.OutOrStdout())
	for _, path := range written {
		r.Message("FilePath", fmt.Sprintf(MsgWroteFile, path))
	}
	return nil
}

func newStaticCmd() *cobra.Command {
	var (
		ini   string
		check bool
	)

	cmd := &cobra.Command{
		Use:     "static",
		Short:   MsgStaticShort,
		Long:    MsgStaticLong,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			if check {
				has, err := static.HasVariations(ini, s.opts...)
				if err != nil {
					return err
				}
				if has {
					return errors.Newf(errors.ErrStaticVariations, MsgHasVariations, ini).WithDetail("file", ini)
				}
				return nil
			}
			info, err := static.Extract(ini, s.opts...)
			if err != nil {
				return err
			}
			return cmakeoutput.Write(cmd.OutOrStdout(), info.Data())
		},
	}
	cmd.Flags().StringVarP(&ini, "ini", "i", "", MsgFlagIni)
	cmd.Flags().BoolVar(&check, "check", false, MsgFlagCheck)
	_ = cmd.MarkFlagRequired("ini")
	return cmd
}

func newConvergenceCmd() *cobra.Command {
	var flags writeFlags

	cmd := &cobra.Command{
		Use:     "convergence",
		Short:   MsgConvergenceShort,
		Long:    MsgConvergenceLong,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvergence(cmd, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func runConvergence(cmd *cobra.Command, flags writeFlags) error {
	logger := logging.GetLogger("cmd.convergence")
	defer logging.LogOperationStart(logger, "convergence")()

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	info, err := static.Extract(flags.ini, s.opts...)
	if err != nil {
		return err
	}
	res, err := convergence.Extract(flags.ini, s.opts...)
	if err != nil {
		return err
	}
	data, err := convergence.Write(res, info, s.writeOptions(flags.cmake))
	if err != nil {
		return errors.WithFile(err, flags.ini)
	}

	if flags.cmake {
		return cmakeoutput.Write(cmd.OutOrStdout(), data)
	}
	r := ui.NewRenderer(ui.FormatAuto, cmd.OutOrStdout())
	r.Message("Header", fmt.Sprintf(MsgTestsFormat, len(res.Tests)))
	names, _ := data.List(expansion.NamesEntry)
	for _, name := range names {
		r.Message("FilePath", fmt.Sprintf(MsgWroteFile, name))
	}
	return nil
}
