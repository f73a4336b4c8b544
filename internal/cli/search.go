package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Will-Langhart/shieldai-sub001/pkg/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search a user's memories",
		Long:  "Embed the query and return the user's most relevant memories with their re-ranked scores.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().StringP("user", "u", "", "User id (required)")
	cmd.Flags().String("conversation", "", "Restrict to one conversation")
	cmd.Flags().IntP("top-k", "k", 0, "Maximum results")
	cmd.Flags().Float64P("min-score", "m", 0, "Admission threshold")

	cmd.MarkFlagRequired("user")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	userID, _ := cmd.Flags().GetString("user")
	conversationID, _ := cmd.Flags().GetString("conversation")
	topK, _ := cmd.Flags().GetInt("top-k")
	minScore, _ := cmd.Flags().GetFloat64("min-score")
	query := strings.Join(args, " ")

	service, err := openService()
	if err != nil {
		exitErr("open service", err)
	}
	defer service.Close()

	var opts []memory.RetrieveOption
	if conversationID != "" {
		opts = append(opts, memory.WithConversationID(conversationID))
	}
	if topK > 0 {
		opts = append(opts, memory.WithTopK(topK))
	}
	if minScore > 0 {
		opts = append(opts, memory.WithMinScore(minScore))
	}

	results := service.RetrieveRelevantMemories(cmd.Context(), query, userID, opts...)

	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
}
