package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report index record count and dimension",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	service, err := openService()
	if err != nil {
		exitErr("open service", err)
	}
	defer service.Close()

	stats, err := service.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}

	b, _ := json.MarshalIndent(map[string]int{
		"total_count": stats.TotalCount,
		"dimension":   stats.Dimension,
	}, "", "  ")
	fmt.Println(string(b))
}
