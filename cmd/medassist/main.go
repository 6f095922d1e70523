// medassist runs the medical AI assistant pipeline.
//
// Usage:
//
//	medassist serve                      web server: session API, history, web app
//	medassist backend                    reference analysis backend
//	medassist analyze <file> --category  one-shot analysis from the terminal
//	medassist analyze --text "..."       typed symptoms
//	medassist history                    list past analyses from the backend
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
