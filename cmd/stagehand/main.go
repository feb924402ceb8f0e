package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rshade/stagehand/internal/cli"
	"github.com/rshade/stagehand/pkg/version"
)

func run() error {
	root := cli.NewRootCmd(version.GetVersion())
	return root.ExecuteContext(context.Background())
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}
