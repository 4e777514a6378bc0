package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/arthur-debert/metaini/cmd/metaini"
	"github.com/arthur-debert/metaini/internal/version"
)

func main() {
	rootCmd := metaini.NewRootCmd()

	header := &doc.GenManHeader{
		Title:   "METAINI",
		Section: "1",
		Source:  "metaini " + version.Version,
		Manual:  "metaini manual",
	}

	if err := doc.GenMan(rootCmd, header, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating man page: %v\n", err)
		os.Exit(1)
	}
}
