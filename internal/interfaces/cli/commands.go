package cli

import (
	"fmt"
	"os"

	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/llm"
	_ "github.com/nexis-chat/nexis/gateway/internal/infrastructure/llm/anthropic"
	_ "github.com/nexis-chat/nexis/gateway/internal/infrastructure/llm/gemini"
	_ "github.com/nexis-chat/nexis/gateway/internal/infrastructure/llm/openai"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// DefaultServer is used when neither --server nor NEXIS_SERVER is set.
const DefaultServer = "http://127.0.0.1:8080"

// NewRootCommand builds the nexis-cli command tree.
func NewRootCommand(version string) *cobra.Command {
	var server string

	root := &cobra.Command{
		Use:          "nexis-cli",
		Short:        "Nexis command line client",
		Long:         "Nexis command line client for creating rooms, sending messages, and connecting over WebSocket",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&server, "server", defaultServer(), "Gateway base HTTP URL")

	client := func() *Client { return NewClient(server) }

	var topic string
	createRoom := &cobra.Command{
		Use:   "create-room <name>",
		Short: "Create a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := client().CreateRoom(cmd.Context(), args[0], topic)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "room created: %s (%s)\n", created.ID, created.Name)
			return nil
		},
	}
	createRoom.Flags().StringVar(&topic, "topic", "", "Optional room topic")
	root.AddCommand(createRoom)

	var replyTo string
	sendMessage := &cobra.Command{
		Use:   "send-message <room-id> <sender> <text>",
		Short: "Send a text message to a room",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sent, err := client().SendMessage(cmd.Context(), args[0], args[1], args[2], replyTo)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "message sent: %s\n", sent.ID)
			return nil
		},
	}
	sendMessage.Flags().StringVar(&replyTo, "reply-to", "", "Message id this message replies to")
	root.AddCommand(sendMessage)

	root.AddCommand(&cobra.Command{
		Use:   "get-room <room-id>",
		Short: "Fetch a room with its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			room, err := client().GetRoom(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", room.Name, room.ID)
			if room.Topic != "" {
				fmt.Fprintf(out, "topic: %s\n", room.Topic)
			}
			for _, msg := range room.Messages {
				fmt.Fprintf(out, "  [%s] %s: %s\n", msg.ID, msg.Sender, msg.Text)
			}
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "invite <room-id> <member-id>",
		Short: "Invite a member to a room",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			invited, err := client().InviteMember(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "invited %s to %s\n", invited.MemberID, invited.RoomID)
			return nil
		},
	})

	var (
		limit    int
		room     string
		minScore float64
	)
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Semantic search for messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client().Search(cmd.Context(), args[0], limit, room, minScore)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Search results for: %s\n\n", resp.Query)
			if len(resp.Results) == 0 {
				fmt.Fprintln(out, "No results found.")
				return nil
			}
			for i, result := range resp.Results {
				fmt.Fprintf(out, "%d. [score: %.3f] %s\n", i+1, result.Score, truncate(result.Content, 100))
				if result.RoomID != "" {
					fmt.Fprintf(out, "   Room: %s\n", result.RoomID)
				}
			}
			fmt.Fprintf(out, "\nTotal: %d results\n", resp.Total)
			return nil
		},
	}
	searchCmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of results")
	searchCmd.Flags().StringVar(&room, "room", "", "Filter by room ID")
	searchCmd.Flags().Float64Var(&minScore, "min-score", 0, "Minimum similarity score (0.0-1.0)")
	root.AddCommand(searchCmd)

	var (
		wsURL     string
		wsMessage string
		timeoutMS int
	)
	connect := &cobra.Command{
		Use:   "connect",
		Short: "Connect to the WebSocket endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := ConnectOnce(wsURL, wsMessage, timeoutMS)
			if err != nil {
				return err
			}
			if reply == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "ws connected")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ws reply: %s\n", reply)
			return nil
		},
	}
	connect.Flags().StringVar(&wsURL, "url", "ws://127.0.0.1:8080/ws", "WebSocket URL")
	connect.Flags().StringVar(&wsMessage, "message", "", "Optional text frame to send immediately after connect")
	connect.Flags().IntVar(&timeoutMS, "timeout-ms", DefaultWSTimeoutMS, "Receive timeout in milliseconds")
	root.AddCommand(connect)

	var (
		providerName string
		prompt       string
		stream       bool
	)
	testProvider := &cobra.Command{
		Use:   "test-provider",
		Short: "Test AI provider connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTestProvider(cmd, providerName, prompt, stream)
		},
	}
	testProvider.Flags().StringVarP(&providerName, "provider", "p", "", "Provider to test (openai, anthropic, gemini)")
	testProvider.Flags().StringVarP(&prompt, "prompt", "q", "", "Prompt to send")
	testProvider.Flags().BoolVarP(&stream, "stream", "s", false, "Use streaming")
	testProvider.MarkFlagRequired("provider")
	testProvider.MarkFlagRequired("prompt")
	root.AddCommand(testProvider)

	return root
}

func runTestProvider(cmd *cobra.Command, providerName, prompt string, stream bool) error {
	out := cmd.OutOrStdout()

	provider, err := llm.CreateProvider(llm.ProviderConfig{
		Type:   providerName,
		APIKey: apiKeyFor(providerName),
		Model:  os.Getenv("NEXIS_AI_MODEL"),
	}, zap.NewNop())
	if err != nil {
		return &InvalidArgumentError{Reason: err.Error()}
	}

	fmt.Fprintf(out, "Testing %s provider...\n", providerName)
	req := &llm.GenerateRequest{
		Prompt:      prompt,
		MaxTokens:   100,
		Temperature: 0.7,
	}

	if !stream {
		resp, err := provider.Generate(cmd.Context(), req)
		if err != nil {
			return &TransportError{Err: err}
		}
		fmt.Fprintf(out, "Response: %s\n", resp.Content)
		if resp.Model != "" {
			fmt.Fprintf(out, "Model: %s\n", resp.Model)
		}
		if resp.FinishReason != "" {
			fmt.Fprintf(out, "Finish reason: %s\n", resp.FinishReason)
		}
		return nil
	}

	fmt.Fprintln(out, "Streaming response:")
	deltaCh := make(chan llm.StreamChunk, 16)
	errCh := make(chan error, 1)
	go func() {
		errCh <- provider.GenerateStream(cmd.Context(), req, deltaCh)
		close(deltaCh)
	}()
	for chunk := range deltaCh {
		if chunk.Type == llm.ChunkDelta {
			fmt.Fprint(out, chunk.Text)
		}
	}
	if err := <-errCh; err != nil {
		return &TransportError{Err: err}
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Stream completed")
	return nil
}

func apiKeyFor(providerName string) string {
	switch providerName {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	default:
		return ""
	}
}

func defaultServer() string {
	if env := os.Getenv("NEXIS_SERVER"); env != "" {
		return env
	}
	return DefaultServer
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
