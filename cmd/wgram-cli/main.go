package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wgram/wgram/internal/client"
	"github.com/wgram/wgram/internal/protocol"
)

func main() {
	serverURL := flag.String("server", "http://127.0.0.1:3000", "gateway base URL")
	phone := flag.String("phone", "", "phone number to log in with (skip if already authorized)")
	flag.Parse()

	// Log to a file so the terminal stays usable.
	logCfg := zap.NewDevelopmentConfig()
	logCfg.OutputPaths = []string{"wgram-cli.log"}
	logCfg.ErrorOutputPaths = []string{"wgram-cli.log"}
	logger, err := logCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	stdin := bufio.NewReader(os.Stdin)

	if *phone != "" {
		if err := login(ctx, *serverURL, *phone, stdin); err != nil {
			fmt.Fprintf(os.Stderr, "Login failed: %v\n", err)
			os.Exit(1)
		}
	}

	store := client.NewStore()
	wsURL := strings.Replace(*serverURL, "http", "ws", 1) + "/ws"
	conn, err := client.Dial(ctx, wsURL, store, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	// Scheduler lifetime is tied to the connection.
	schedCtx, stopSched := context.WithCancel(ctx)
	defer stopSched()
	go client.NewScheduler(conn, store, logger.Named("sched")).Run(schedCtx)
	go func() {
		<-conn.Done()
		stopSched()
	}()

	fmt.Println("Connected. Commands: /chats, /open <id>, /msgs, /quit; anything else is sent to the open chat.")
	repl(ctx, conn, store, stdin)
}

func login(ctx context.Context, serverURL, phone string, stdin *bufio.Reader) error {
	auth := client.NewAuthClient(serverURL)

	res, err := auth.RequestCode(ctx, phone)
	if err != nil {
		return err
	}
	fmt.Println(res.Message)
	if !res.Success {
		return fmt.Errorf("request code: %s", res.Message)
	}

	code, err := prompt(stdin, "Code: ")
	if err != nil {
		return err
	}
	res, err = auth.VerifyCode(ctx, phone, code)
	if err != nil {
		return err
	}
	if !res.Success && strings.Contains(strings.ToLower(res.Message), "password") {
		password, err := prompt(stdin, "2FA password: ")
		if err != nil {
			return err
		}
		res, err = auth.VerifyPassword(ctx, phone, password)
		if err != nil {
			return err
		}
	}
	if !res.Success {
		return fmt.Errorf("verify: %s", res.Message)
	}
	fmt.Println(res.Message)
	return nil
}

func repl(ctx context.Context, conn *client.Conn, store *client.Store, stdin *bufio.Reader) {
	for {
		line, err := prompt(stdin, "> ")
		if err != nil {
			return
		}
		store.Touch(time.Now())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			return
		case line == "/chats":
			if err := conn.Send(ctx, protocol.GetDialogs{}); err != nil {
				fmt.Println("error:", err)
				continue
			}
			time.Sleep(time.Second)
			for _, c := range store.Chats() {
				marker := " "
				if c.UnreadCount > 0 {
					marker = "*"
				}
				fmt.Printf("%s %3d  %-30s %s\n", marker, c.ID, c.Name, c.LastMessage)
			}
		case strings.HasPrefix(line, "/open "):
			id, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(line, "/open ")), 10, 64)
			if err != nil {
				fmt.Println("usage: /open <id>")
				continue
			}
			store.Select(id)
			fmt.Printf("Opened chat %d; messages will appear via /msgs\n", id)
		case line == "/msgs":
			id, ok := store.Selected()
			if !ok {
				fmt.Println("no chat open")
				continue
			}
			for _, m := range store.Messages(id) {
				who := m.SenderName
				if m.IsOutgoing {
					who = "me"
				}
				fmt.Printf("[%s] %s: %s\n", time.Unix(m.Timestamp, 0).Format("15:04"), who, m.Text)
			}
		default:
			id, ok := store.Selected()
			if !ok {
				fmt.Println("no chat open, use /open <id>")
				continue
			}
			if err := conn.Send(ctx, protocol.SendMessage{ChatID: id, Text: line}); err != nil {
				fmt.Println("error:", err)
			}
		}
	}
}

func prompt(stdin *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := stdin.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
