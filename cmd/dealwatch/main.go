// dealwatch watches weekend and bank-holiday flight prices and alerts on
// new deals and significant drops.
//
// Usage:
//   dealwatch serve
//   dealwatch run
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/misscmunoz/holiday-deals/internal/app"
	"github.com/misscmunoz/holiday-deals/internal/config"
)

func main() {
	cliApp := &cli.App{
		Name:  "dealwatch",
		Usage: "travel deal monitor: weekend and bank-holiday flight prices with drop alerts",
		Commands: []*cli.Command{
			serveCommand(),
			runCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server (configured from the environment)",
		Action: func(c *cli.Context) error {
			ctx, rootCancel := context.WithCancel(context.Background())
			defer rootCancel()

			cfg := config.Load()
			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer a.Store.Close()

			srv := &http.Server{
				Addr:    ":" + cfg.Port,
				Handler: a.Router,
				BaseContext: func(l net.Listener) context.Context {
					return ctx
				},
			}

			// graceful shutdown
			idleConnsClosed := make(chan struct{})
			go func() {
				sigCh := make(chan os.Signal, 1)
				signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
				sig := <-sigCh
				log.Printf("received signal %v, initiating graceful shutdown", sig)

				ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				if err := srv.Shutdown(ctx); err != nil {
					log.Printf("graceful shutdown error: %v", err)
				}
				rootCancel()
				close(idleConnsClosed)
			}()

			log.Printf("starting server on :%s", cfg.Port)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			<-idleConnsClosed
			log.Printf("server stopped")
			return nil
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Execute one monitoring pass and print the summary as JSON",
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer a.Store.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			summary, err := a.Orchestrator.Run(ctx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}
}
