package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "forget",
		Short: "Delete indexed memories",
		Long:  "Delete memories by user or by conversation. Deletion is scoped to the owning user; errors are reported, not swallowed.",
		Run:   runForget,
	}

	cmd.Flags().StringP("user", "u", "", "User id (required)")
	cmd.Flags().String("conversation", "", "Delete only this conversation's memories")

	cmd.MarkFlagRequired("user")

	RootCmd.AddCommand(cmd)
}

func runForget(cmd *cobra.Command, args []string) {
	userID, _ := cmd.Flags().GetString("user")
	conversationID, _ := cmd.Flags().GetString("conversation")

	service, err := openService()
	if err != nil {
		exitErr("open service", err)
	}
	defer service.Close()

	if conversationID != "" {
		if err := service.DeleteConversationMemories(cmd.Context(), conversationID, userID); err != nil {
			exitErr("forget conversation", err)
		}
		fmt.Printf("deleted memories for conversation %s (user %s)\n", conversationID, userID)
		return
	}

	if err := service.DeleteUserMemories(cmd.Context(), userID); err != nil {
		exitErr("forget user", err)
	}
	fmt.Printf("deleted all memories for user %s\n", userID)
}
