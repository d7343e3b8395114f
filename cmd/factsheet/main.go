package main

import (
	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "factsheet"}

	root.AddCommand(runCMD(), ingestCMD(), generateCMD(), validateCMD(), serveCMD(), migrateCMD())
	_ = root.Execute()
}
