package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/jaladseva/eseva-portal/content"
	"github.com/jaladseva/eseva-portal/content/feed"
	"github.com/jaladseva/eseva-portal/identity/userpool"
	"github.com/jaladseva/eseva-portal/internal/config"
	"github.com/jaladseva/eseva-portal/internal/localstore"
	"github.com/jaladseva/eseva-portal/server"
	"github.com/jaladseva/eseva-portal/session"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()

	c := config.New()
	displayAppname(c.GetAppName())

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if c.GetEnv() == "DEV" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	portal, err := buildServer(c, logger)
	if err != nil {
		return fmt.Errorf("building server: %w", err)
	}
	defer portal.Close()

	httpServer := &http.Server{Addr: c.GetPort(), Handler: portal}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func buildServer(c config.Config, logger zerolog.Logger) (*server.Server, error) {
	store, err := localstore.New(c.GetDataFolder())
	if err != nil {
		return nil, fmt.Errorf("opening data folder: %w", err)
	}

	provider, err := userpool.New(userpool.Config{
		ClientID:     c.GetUserPoolClientID(),
		ClientSecret: c.GetUserPoolClientSecret(),
		Endpoint:     c.GetUserPoolEndpoint(),
		Domain:       c.GetUserPoolDomain(),
		Issuer:       c.GetUserPoolIssuer(),
	}, userpool.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("creating identity provider: %w", err)
	}

	sessionRepo, err := session.NewLocalRepo(store)
	if err != nil {
		return nil, fmt.Errorf("creating session repo: %w", err)
	}

	sessions, err := session.NewManager(provider, sessionRepo,
		session.WithAdminGroup(c.GetAdminGroup()),
		session.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating session manager: %w", err)
	}

	contentClient, err := content.NewClient(c.GetContentAPIBaseURL(), content.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("creating content client: %w", err)
	}

	feedRepo, err := feed.NewLocalRepo(store)
	if err != nil {
		return nil, fmt.Errorf("creating feed repo: %w", err)
	}

	return server.New(c, sessions, contentClient, feedRepo, server.WithLogger(logger))
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
