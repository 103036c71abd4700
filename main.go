package main

import (
	"os"

	"github.com/bnema/vkshell/cmd"
	"github.com/bnema/vkshell/internal/logger"
)

func main() {
	err := cmd.Execute()
	if err != nil {
		logger.Error("vkshell failed", "err", err)
	}
	os.Exit(cmd.ExitCode(err))
}
