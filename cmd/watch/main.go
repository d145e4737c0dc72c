// Command watch follows a project discussion from the terminal: it prints
// live hub events and keeps the caller's pending join requests on screen.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Marga-Ghale/ora-discuss/internal/client"
	"github.com/Marga-Ghale/ora-discuss/internal/config"
	"github.com/Marga-Ghale/ora-discuss/internal/logger"
	"github.com/Marga-Ghale/ora-discuss/internal/models"
	"github.com/Marga-Ghale/ora-discuss/internal/poller"
	"github.com/Marga-Ghale/ora-discuss/internal/socket"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "API base URL")
	token := flag.String("token", os.Getenv("ORA_TOKEN"), "access token (default $ORA_TOKEN)")
	project := flag.String("project", "", "project to join")
	interval := flag.Duration("interval", config.Load().PollInterval, "notification poll interval")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger.Setup(*level, false)
	if *token == "" {
		log.Fatal().Msg("a token is required (-token or ORA_TOKEN)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := client.NewAPI(*server, *token)
	wsURL := "ws" + strings.TrimPrefix(strings.TrimRight(*server, "/"), "http") + "/api/ws"
	transport := client.NewTransport(wsURL, *token)
	if err := transport.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("could not reach the hub")
	}
	defer transport.Close()

	if *project != "" {
		if err := transport.Join(*project); err != nil {
			log.Fatal().Err(err).Msg("join failed")
		}
		if history, err := api.History(ctx, *project, 20); err == nil {
			for _, m := range history {
				printMessage(m)
			}
		}
	}

	p := &poller.Poller{
		Fetch:    api.ListNotifications,
		Interval: *interval,
		OnUpdate: printPending(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.Run(gctx)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case env, ok := <-transport.Events():
				if !ok {
					return errors.New("hub connection closed")
				}
				// A resolved or new request changes the pending list right away.
				if env.Type == socket.EventNotificationRequested || env.Type == socket.EventNotificationResolved {
					p.Refresh()
				}
				printEvent(env)
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("watch stopped")
		os.Exit(1)
	}
}

func printEvent(env socket.RawEnvelope) {
	payload, err := env.Decode()
	if err != nil {
		log.Debug().Err(err).Str("type", string(env.Type)).Msg("skipping event")
		return
	}
	switch p := payload.(type) {
	case *socket.MessagePayload:
		printMessage(&p.Message)
	case *socket.FileUploadedPayload:
		fmt.Printf("[file] %s uploaded %s\n", p.UploaderName, p.File.Name)
	case *socket.FileDeletedPayload:
		fmt.Printf("[file] %s removed\n", p.FileID)
	case *socket.NotificationPayload:
		fmt.Printf("[join] %s wants to join %s as %s\n", p.RequesterName, p.ProjectName, p.Role)
	case *socket.ResolutionPayload:
		fmt.Printf("[join] request %s %s\n", p.NotificationID, p.State)
	case *socket.AckPayload:
		fmt.Printf("[hub] %s %s\n", p.Action, p.ProjectID)
	case *socket.ErrorPayload:
		fmt.Printf("[hub] %s failed: %s\n", p.Action, p.Message)
	}
}

func printMessage(m *models.Message) {
	fmt.Printf("%s  %s: %s\n", m.Timestamp.Local().Format(time.Kitchen), m.SenderName, m.Body)
}

// printPending prints the pending list whenever its IDs change.
func printPending() func([]*models.Notification) {
	var last string
	return func(list []*models.Notification) {
		ids := make([]string, len(list))
		for i, n := range list {
			ids[i] = n.ID
		}
		key := strings.Join(ids, ",")
		if key == last {
			return
		}
		last = key

		fmt.Printf("-- %d pending join request(s)\n", len(list))
		for _, n := range list {
			fmt.Printf("   %s  %s -> %s (%s)\n", n.ID, n.RequesterName, n.ProjectName, n.Role)
		}
	}
}
