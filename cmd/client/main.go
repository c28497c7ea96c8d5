// Command client is a terminal client for the collaboration relay. Each
// stdin line is either a JSON protocol message or one of the commands
// /sync, /state, /users, /retry and /quit.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/emmetthe/interactive-db/internal/config"
	"github.com/emmetthe/interactive-db/internal/logger"
	"github.com/emmetthe/interactive-db/pkg/client"
)

func main() {
	if err := run(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg := config.LoadClient()

	urlFlag := flag.String("url", cfg.RelayURL, "relay address")
	workspaceFlag := flag.String("workspace", "", "workspace ID to join (required)")
	nameFlag := flag.String("name", "Anonymous", "display name")
	accessFlag := flag.String("access", "edit", "access level: view or edit")
	userFlag := flag.String("user", "", "user ID (default: stored in USER_ID_FILE)")
	flag.Parse()

	// stdout carries protocol output
	slog.SetDefault(logger.New(os.Stderr, cfg.Env == config.EnvProduction, cfg.LogLevel))

	if *workspaceFlag == "" {
		return fmt.Errorf("-workspace is required")
	}

	userID := *userFlag
	if userID == "" {
		id, err := client.LoadOrCreateUserID(cfg.UserIDFile)
		if err != nil {
			return err
		}
		userID = id
	}

	out := &printer{enc: json.NewEncoder(os.Stdout)}
	replica := client.NewReplica()

	manager := client.NewManager(client.Options{
		WorkspaceID: *workspaceFlag,
		UserID:      userID,
		UserName:    *nameFlag,
		AccessLevel: client.AccessLevel(*accessFlag),
		OnMessage: func(msg *client.Message) {
			out.Encode(msg)
		},
		OnConnect: func() {
			fmt.Fprintln(os.Stderr, "connected")
		},
		OnDisconnect: func() {
			fmt.Fprintln(os.Stderr, "connection lost, reconnecting")
		},
		OnGiveUp: func(err error) {
			fmt.Fprintf(os.Stderr, "disconnected: %v (type /retry to reconnect)\n", err)
		},
	})
	replica.Attach(manager, func(msg *client.Message) {
		out.Encode(msg)
	})

	if err := manager.Connect(*urlFlag); err != nil {
		fmt.Fprintf(os.Stderr, "initial connection failed: %v\n", err)
	}
	defer manager.Disconnect()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 64*1024), 1<<20)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sigCh:
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handleLine(manager, replica, *urlFlag, strings.TrimSpace(line), out); quit {
				return nil
			}
		}
	}
}

// printer serializes JSON output from the read loop and the input loop.
type printer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (p *printer) Encode(v any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enc.Encode(v); err != nil {
		slog.Warn("failed to write output", "error", err)
	}
}

// handleLine executes one input line and reports whether to exit.
func handleLine(manager *client.Manager, replica *client.Replica, url, line string, out *printer) bool {
	switch line {
	case "":
		return false
	case "/quit":
		return true
	case "/sync":
		line = `{"type":"sync:request"}`
	case "/state":
		out.Encode(replica.State())
		return false
	case "/users":
		out.Encode(replica.Users())
		return false
	case "/retry":
		if err := manager.Connect(url); err != nil {
			fmt.Fprintf(os.Stderr, "connection failed: %v\n", err)
		}
		return false
	}

	msg, err := client.Decode([]byte(line))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid message: %v\n", err)
		return false
	}
	if err := manager.Send(msg); err != nil {
		fmt.Fprintf(os.Stderr, "not sent: %v\n", err)
		return false
	}
	// Own edits are not echoed back, so fold them in locally.
	replica.Apply(msg)
	return false
}
