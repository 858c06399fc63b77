package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/PabloGalante/serviceai-agent/internal/bootstrap"
	"github.com/PabloGalante/serviceai-agent/internal/config"
	"github.com/PabloGalante/serviceai-agent/internal/observability"
)

func main() {
	_ = godotenv.Load()

	email := flag.String("email", "asha.kumar@example.com", "Email of the demo user to log in as")
	userMessage := flag.String("message", "", "Send one message and exit")
	logLevel := flag.String("log", "error", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalln("ERROR:", err)
	}
	observability.SetLevel(*logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalln("ERROR:", err)
	}
	defer app.Close()

	ws, err := app.Workspace.Login(ctx, *email)
	if err != nil {
		log.Fatalln("ERROR:", err)
	}

	if *userMessage != "" {
		r := newREPL(ws, os.Stdout)
		r.handle(ctx, *userMessage)
		return
	}

	t := term.NewTerminal(os.Stdin, "> ")
	r := newREPL(ws, t)
	fmt.Fprintln(t, "type /help for commands")
	r.printHistory()

	fd := int(os.Stdin.Fd())
	for ctx.Err() == nil {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			fmt.Fprintln(t, "Fatal:", err)
			break
		}

		width, height, err := term.GetSize(fd)
		if err != nil {
			_ = term.Restore(fd, oldState)
			fmt.Fprintln(t, "Fatal:", err)
			break
		}
		_ = t.SetSize(width, height)

		line, err := t.ReadLine()
		restoreErr := term.Restore(fd, oldState)

		if err != nil {
			if err != io.EOF {
				fmt.Fprintln(t, "Fatal:", err)
			}
			break
		}
		if restoreErr != nil {
			fmt.Fprintln(t, "Fatal:", restoreErr)
			break
		}

		if r.handle(ctx, line) {
			break
		}
	}
}
