package main

import (
	"os"

	"github.com/arthur-debert/metaini/cmd/metaini"
	"github.com/arthur-debert/metaini/pkg/errors"
	"github.com/arthur-debert/metaini/pkg/ui"
)

func main() {
	rootCmd := metaini.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		ui.NewRenderer(ui.FormatAuto, os.Stderr).Error(errors.Describe(err))
		os.Exit(metaini.ExitCode(err))
	}
}
