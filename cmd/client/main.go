// Command client is a terminal chat client speaking the length-prefixed JSON
// protocol, with a gocui interface.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/cyberinferno/go-chat/client"
	"github.com/cyberinferno/go-chat/logger"
)

func main() {
	var (
		addr   = flag.String("addr", "localhost:9000", "chat server address")
		logDir = flag.String("log-dir", "logs", "directory for log files")
	)
	flag.Parse()

	// The terminal belongs to the UI, so logs go to files only.
	fileWriter, err := logger.NewDailyFileWriter("chat-client", *logDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up log files: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = fileWriter.Close() }()
	log := logger.New(fileWriter, "chat-client", zerolog.InfoLevel)

	chat := client.New(client.DefaultConfig(*addr), log)

	ui, err := NewChatUI(chat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start UI: %v\n", err)
		os.Exit(1)
	}
	defer ui.Close()

	if err := chat.Connect(); err != nil {
		ui.Close()
		fmt.Fprintf(os.Stderr, "failed to connect to %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer func() { _ = chat.Close() }()

	if err := ui.Run(); err != nil {
		ui.Close()
		fmt.Fprintf(os.Stderr, "UI error: %v\n", err)
		os.Exit(1)
	}
}
