package main

import (
	"context"
	"fmt"
	"os"

	"gitlab.com/timkado/api/review-xmpp-notifier/internal/bootstrap"
	"gitlab.com/timkado/api/review-xmpp-notifier/pkg/contextkeys"
)

func main() {
	os.Exit(run())
}

// run returns the exit code so deferred cleanup runs before os.Exit.
func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = context.WithValue(ctx, contextkeys.RequestIDKey, "app-main")

	app, cleanup, err := bootstrap.InitializeApp(ctx)
	if err != nil {
		// The configured logger does not exist yet.
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		return 1
	}
	defer cleanup()

	if err := app.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Application run failed: %v\n", err)
		return 1
	}

	fmt.Println("Application exited gracefully.")
	return 0
}
