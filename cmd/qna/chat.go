package qna

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shhayash-work/copilot-qna/pkg/a2a"
	"github.com/shhayash-work/copilot-qna/pkg/config"
	"github.com/shhayash-work/copilot-qna/pkg/task"
	"github.com/shhayash-work/copilot-qna/pkg/tui"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions interactively",
	Long: "Chat reads one question per line and prints each answer. The config file is watched, " +
		"so a changed agent URL or token applies to the next question. Type /help for commands.",
	RunE: runChat,
}

var (
	chatStream       bool
	chatShowThinking bool
	chatTUI          bool
)

func init() {
	chatCmd.Flags().BoolVar(&chatStream, "stream", false, "start in streaming mode")
	chatCmd.Flags().BoolVar(&chatShowThinking, "show-thinking", true, "print the agent's thinking trace")
	chatCmd.Flags().BoolVar(&chatTUI, "tui", false, "use the full-screen chat interface")
}

const chatHelp = `Commands:
  /stream    toggle streaming mode
  /thinking  toggle the thinking trace
  /quit      leave the chat`

func runChat(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	logOut := io.Writer(os.Stderr)
	if chatTUI {
		// The full-screen interface owns the terminal.
		if err := config.EnsureDataDir(); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(config.DataDir(), "chat.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("opening chat log: %w", err)
		}
		defer func() { _ = f.Close() }()
		logOut = f
	}

	a, err := newAppLogging(ctx, logOut)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	state := &chatState{stream: chatStream, thinking: chatShowThinking}

	if chatTUI {
		ui := tui.New(fmt.Sprintf("qna v%s", version), tuiSend(a.orch, state))
		watchConfig(ctx, a, func(c *config.Config) {
			ui.Notify(fmt.Sprintf("config reloaded, agent %s", c.Agent.URL))
		})
		return ui.Run()
	}

	watchConfig(ctx, a, func(c *config.Config) {
		fmt.Fprintf(errOut, "(config reloaded, agent %s)\n", c.Agent.URL)
	})
	fmt.Fprintf(out, "qna v%s - type /help for commands\n", version)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Fprint(out, "> ")
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case line, ok = <-lines:
			if !ok {
				fmt.Fprintln(out)
				return nil
			}
		}

		quit, handled := state.command(out, strings.TrimSpace(line))
		if quit {
			return nil
		}
		if handled {
			continue
		}

		var printer *thinkingPrinter
		if state.thinking {
			printer = &thinkingPrinter{w: out}
		}
		result, _, err := ask(ctx, a.orch, line, state.stream, nil, printer)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintln(errOut, describeError(err))
			if result.Answer == nil {
				continue
			}
		}
		renderResult(out, result, false)
	}
}

func watchConfig(ctx context.Context, a *app, onReload func(*config.Config)) {
	path := configPath()
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := config.Watch(ctx, path, onReload); err != nil {
		a.logger.Warn("config watch disabled", slog.String("err", err.Error()))
	}
}

// tuiSend adapts the chat loop to the full-screen interface. Slash commands
// come back as informational replies.
func tuiSend(orch *task.Orchestrator, state *chatState) tui.SendFunc {
	return func(ctx context.Context, line string, progress func(a2a.ThinkingItem)) (tui.Reply, error) {
		var buf bytes.Buffer
		if _, handled := state.command(&buf, strings.TrimSpace(line)); handled {
			return tui.Reply{Role: tui.RoleInfo, Text: strings.TrimSpace(buf.String())}, nil
		}

		var printer *thinkingPrinter
		if state.thinking {
			printer = &thinkingPrinter{emit: progress}
		}
		result, _, err := ask(ctx, orch, line, state.stream, nil, printer)
		if err != nil && result.Answer == nil {
			return tui.Reply{}, errors.New(strings.TrimPrefix(describeError(err), "Error: "))
		}
		buf.Reset()
		renderResult(&buf, result, false)
		return tui.Reply{Role: tui.RoleAgent, Text: strings.TrimSpace(buf.String())}, nil
	}
}

type chatState struct {
	stream   bool
	thinking bool
}

// command handles slash commands. It reports whether the chat should end
// and whether line was consumed.
func (s *chatState) command(w io.Writer, line string) (quit, handled bool) {
	switch line {
	case "":
		return false, true
	case "/quit", "/exit":
		return true, true
	case "/help":
		fmt.Fprintln(w, chatHelp)
		return false, true
	case "/stream":
		s.stream = !s.stream
		fmt.Fprintf(w, "streaming mode: %s\n", onOff(s.stream))
		return false, true
	case "/thinking":
		s.thinking = !s.thinking
		fmt.Fprintf(w, "thinking trace: %s\n", onOff(s.thinking))
		return false, true
	}
	return false, false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
