package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Upload(ctx context.Context, path string) error
	Uploads(ctx context.Context) error
	CancelUpload(ctx context.Context, id string) error
	Clips(ctx context.Context, page int) error
}

// Run starts the REPL on stdin.
func (a *App) Run(ctx context.Context) {
	printlnFn("TamteKlipy CLI (type 'help' for commands)")
	runREPL(ctx, a, a.status, bufio.NewScanner(a.reader))
}

// runREPL reads a line, parses the first token as the command and dispatches
// to methods on 'a'. The loop exits on scanner EOF or on "exit"/"quit".
//
// Commands:
//
//	Not logged in:
//	  - help           - show available commands
//	  - login          - authenticate
//	  - exit | quit    - leave the program
//
//	Logged in:
//	  - help           - show available commands
//	  - upload <path>  - upload a clip or screenshot (runs in the background)
//	  - uploads        - show the state of every upload in this session
//	  - cancel <id>    - cancel a running upload
//	  - clips [page]   - list clips
//	  - logout         - drop the saved token
//	  - exit | quit    - leave the program
//
// Errors returned by command handlers are printed by the handlers themselves;
// the loop stays focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("tk> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: upload <path>, uploads, cancel <id>, clips [page], logout, exit")
			} else {
				printlnFn("Available commands: login, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "upload":
			if len(args) == 0 {
				printlnFn("Usage: upload <path>")
				continue
			}
			_ = a.Upload(ctx, args[0])

		case "uploads":
			_ = a.Uploads(ctx)

		case "cancel":
			if len(args) == 0 {
				printlnFn("Usage: cancel <id>")
				continue
			}
			_ = a.CancelUpload(ctx, args[0])

		case "clips":
			page := 1
			if len(args) > 0 {
				if _, err := fmt.Sscanf(args[0], "%d", &page); err != nil || page < 1 {
					printlnFn("Usage: clips [page]")
					continue
				}
			}
			_ = a.Clips(ctx, page)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
