// Package cli implements the shieldmem administrative CLI.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Will-Langhart/shieldai-sub001/pkg/memory"
)

var configPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "shieldmem",
	Short: "Administer the conversational memory index",
	Long:  "Inspect and maintain the conversational memory index: stats, search, and per-user or per-conversation deletion.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file, .json or .yaml (default: environment)")
}

func openService() (*memory.Service, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return memory.NewService(config)
}

func loadConfig() (*memory.Config, error) {
	if configPath == "" {
		return memory.LoadConfigFromEnv()
	}
	switch {
	case strings.HasSuffix(configPath, ".yaml"), strings.HasSuffix(configPath, ".yml"):
		return memory.LoadConfigFromYAML(configPath)
	default:
		return memory.LoadConfigFromJSON(configPath)
	}
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
