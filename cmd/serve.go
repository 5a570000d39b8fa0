// Copyright © 2023 Mike Bland <mbland@acm.org>.
// See LICENSE.txt for details.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mbland/optinlist/agent"
	"github.com/mbland/optinlist/handler"
	"github.com/spf13/cobra"
)

const serveDescription = `` +
	`Serves the subscription and newsletter API over HTTP.

Configuration comes from the same environment variables as the deployed Lambda
function. Variables missing from the environment may be supplied by a dotenv
file via --env-file. With STORE=sqlite, the tables are created on startup.

The server shuts down gracefully on SIGINT or SIGTERM.`

// AgentFactoryFunc builds the agent that serves requests, along with a
// function that releases its resources.
type AgentFactoryFunc func(
	context.Context, *handler.Options, *log.Logger,
) (agent.SubscriptionAgent, func() error, error)

// ServerFunc serves h on addr until ctx is done.
type ServerFunc func(ctx context.Context, addr string, h http.Handler) error

func init() {
	rootCmd.AddCommand(newServeCmd(os.Getenv, newProdAgent, listenAndServe))
}

func newProdAgent(
	ctx context.Context, opts *handler.Options, logger *log.Logger,
) (agent.SubscriptionAgent, func() error, error) {
	pa, closeDb, err := handler.NewProdAgent(
		ctx, opts, handler.LoadDefaultAwsConfig, logger,
	)
	if err != nil {
		return nil, nil, err
	}
	return pa, closeDb, nil
}

func newServeCmd(
	getenv func(string) string,
	newAgent AgentFactoryFunc,
	serve ServerFunc,
) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the API over HTTP",
		Long:  serveDescription,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			ctx, stop := signal.NotifyContext(
				context.Background(), os.Interrupt, syscall.SIGTERM,
			)
			defer stop()
			return runServer(ctx, cmd, getenv, newAgent, serve)
		},
	}
	registerEnvFile(cmd)
	registerAddr(cmd)
	return cmd
}

func runServer(
	ctx context.Context,
	cmd *cobra.Command,
	getenv func(string) string,
	newAgent AgentFactoryFunc,
	serve ServerFunc,
) (err error) {
	logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
	var opts *handler.Options
	var sa agent.SubscriptionAgent
	var closeAgent func() error

	if getenv, err = withEnvFile(getenv, getEnvFile(cmd)); err != nil {
		return
	} else if opts, err = handler.GetOptions(getenv); err != nil {
		return
	} else if sa, closeAgent, err = newAgent(ctx, opts, logger); err != nil {
		return
	}
	defer func() { err = errors.Join(err, closeAgent()) }()

	addr := getAddr(cmd)
	router := handler.NewRouter(handler.NewHandler(sa, logger))
	logger.Printf("serving on %s (store: %s, email: %s)",
		addr, opts.Store, opts.EmailTransport,
	)
	return serve(ctx, addr, router)
}

// withEnvFile returns a getenv function that falls back to the variables in
// envFile for any that getenv leaves empty.
func withEnvFile(
	getenv func(string) string, envFile string,
) (func(string) string, error) {
	if envFile == "" {
		return getenv, nil
	}

	fileEnv, err := godotenv.Read(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", envFile, err)
	}
	return func(varname string) string {
		if value := getenv(varname); value != "" {
			return value
		}
		return fileEnv[varname]
	}, nil
}

const shutdownTimeout = 10 * time.Second

func listenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(), shutdownTimeout,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	} else if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
