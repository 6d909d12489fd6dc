package cli

import (
	"github.com/spf13/cobra"

	"github.com/warraq-labs/warraq/internal/adapters/driving/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the corpus in the terminal",
	Long: `Opens an interactive chat session. Answers stream in as they are
generated, with the sources they draw on listed above each one.

Keybindings:
  enter       Ask the typed question
  esc         Interrupt the current answer; quit when idle
  up/down     Scroll the conversation
  ctrl+c      Quit`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	app, err := tui.NewApp(&tui.Ports{
		Chat:      chatService,
		Retrieval: retrievalService,
	})
	if err != nil {
		return err
	}
	return app.WithContext(cmd.Context()).Run()
}
