package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Desarso/haochat/client"
	"github.com/Desarso/haochat/intent"
	"github.com/spf13/cobra"
)

var (
	chatServer       string
	chatUser         string
	chatConversation string
	chatDeep         bool
	chatWebSearch    bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send one message to a running server",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatServer, "server", "http://localhost:8080", "Server base URL")
	chatCmd.Flags().StringVarP(&chatUser, "user", "u", os.Getenv("USER"), "User identity sent as X-User-ID")
	chatCmd.Flags().StringVarP(&chatConversation, "conversation", "c", "", "Conversation ID (a new one is created when empty)")
	chatCmd.Flags().BoolVar(&chatDeep, "deep", false, "Deep research mode")
	chatCmd.Flags().BoolVarP(&chatWebSearch, "search", "s", false, "Allow web search")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c := client.New(chatServer, chatUser)

	convo := chatConversation
	if convo == "" {
		id, err := c.CreateConversation(ctx)
		if err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
		convo = id
		fmt.Fprintf(os.Stderr, "conversation %s\n", convo)
	}

	reply, err := c.Send(ctx, client.Message{
		ConversationID: convo,
		Text:           strings.Join(args, " "),
		DeepResearch:   chatDeep,
		WebSearch:      chatWebSearch,
	}, client.Callbacks{
		OnDelta: func(delta, _ string) {
			fmt.Print(delta)
		},
		OnStatus: func(status string) {
			fmt.Fprintf(os.Stderr, "\n[%s]\n", status)
		},
	})
	if err != nil {
		return err
	}

	// Buffered and reconciled replies never produced deltas.
	if reply.Transport != intent.Stream || reply.Reconciled || reply.Failed {
		fmt.Print(reply.Text)
	}
	fmt.Println()
	for _, u := range reply.ImageURLs {
		fmt.Println(u)
	}
	if reply.Title != "" {
		fmt.Fprintf(os.Stderr, "title: %s\n", reply.Title)
	}
	return nil
}
