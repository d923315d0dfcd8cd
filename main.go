package main

import (
	"fmt"
	"os"

	"github.com/octools/go-biospatch/cmd"
	"github.com/octools/go-biospatch/internal/config"
	"github.com/octools/go-biospatch/internal/logger"
)

func main() {
	configFile := os.Getenv("BIOSPATCH_CONFIG")

	if err := config.Initialize(configFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing configuration: %v\n", err)
		os.Exit(1)
	}

	logConfig := logger.Config{
		Debug:     config.Instance.Debug,
		LogFormat: config.Instance.LogFormat,
		LogFile:   config.Instance.LogFile,
	}
	if err := logger.Init(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}

	cmd.Execute()

	logger.Sync()
}
