// Command threadwatch opens one conversation as a given participant and prints the thread,
// with each booking message's overlay and buttons, every time it changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"pawhub/config"
	threadCacheRepo "pawhub/database/repository/threadcache"
	"pawhub/models"
	"pawhub/services/apiclient"
	"pawhub/services/approval"
	"pawhub/services/booking"
	"pawhub/services/conversation"
	"pawhub/services/overlay"
	"pawhub/services/realtime"
	"pawhub/utils"
)

func main() {
	conversationID := flag.String("conversation", "", "Conversation to open")
	viewerID := flag.String("viewer", "", "Participant id to act as")
	role := flag.String("role", "client", "Viewer role in the conversation's bookings: client or provider")
	send := flag.String("send", "", "Send this text once the thread is loaded")
	approve := flag.String("approve", "", "Approve this booking id once the thread is loaded")
	noCache := flag.Bool("no-cache", false, "Do not read or write the Redis thread cache")
	flag.Parse()

	if *conversationID == "" || *viewerID == "" {
		flag.Usage()
		os.Exit(2)
	}
	actor := booking.Actor(*role)
	if actor != booking.ActorClient && actor != booking.ActorProvider {
		log.Fatalf("Unknown role %q", *role)
	}

	config.LoadConfig()
	utils.InitializeLogger()
	logger := utils.GetLogger().With(zap.String("viewerID", *viewerID))
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	api := apiclient.New(config.AppConfig.APIBaseURL, *viewerID, config.AppConfig.APITimeout, logger)
	feed := realtime.NewClient(config.AppConfig.WSURL, *viewerID, logger)

	var cache *threadCacheRepo.Cache
	if !*noCache {
		cache = threadCacheRepo.New(utils.GetCacheClient(), config.AppConfig.ThreadCacheTTL, config.AppConfig.BookingCacheTTL, logger)
	}

	viewer := overlay.Viewer{UserID: *viewerID, Role: actor}
	engine := conversation.NewEngine(api, feed, threadCache(cache), conversation.OptionsFromConfig(config.AppConfig, viewer), logger)
	coordinator := approval.NewCoordinator(api, engine, bookingCache(cache), *viewerID, logger)

	go func() {
		if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Realtime feed stopped", zap.Error(err))
		}
	}()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = engine.Run(ctx)
	}()

	engine.Open(*conversationID)
	logger.Info("Watching conversation", zap.String("conversationID", *conversationID))

	pending := actions{send: *send, approve: *approve}
	for {
		select {
		case <-ctx.Done():
			<-done
			return
		case n := <-engine.Notices():
			fmt.Fprintf(os.Stderr, "! %s: %s\n", n.Kind, n.Message)
			if n.Kind == conversation.NoticeRetry {
				engine.Retry()
			}
		case st := <-engine.Updates():
			msgs, anns := engine.Annotations()
			render(os.Stdout, st, msgs, anns)
			if !st.Loading {
				pending.run(ctx, engine, coordinator, logger)
			}
		}
	}
}

// actions are the one-shot commands given on the command line.
type actions struct {
	send    string
	approve string
	ran     bool
}

func (a *actions) run(ctx context.Context, engine *conversation.Engine, c *approval.Coordinator, logger *zap.Logger) {
	if a.ran {
		return
	}
	a.ran = true
	if a.send != "" {
		if _, err := engine.Send(a.send, nil); err != nil {
			logger.Warn("Send rejected", zap.Error(err))
		}
	}
	if a.approve != "" {
		go func() {
			b, err := c.Approve(ctx, a.approve)
			if err != nil {
				logger.Warn("Approve failed", zap.String("bookingID", a.approve), zap.Error(err))
				return
			}
			logger.Info("Booking approved", zap.String("bookingID", b.ID), zap.String("status", string(b.Status)))
		}()
	}
}

// The engine and coordinator treat a nil interface as "no cache"; a nil *Cache would not be.
func threadCache(c *threadCacheRepo.Cache) conversation.ThreadCache {
	if c == nil {
		return nil
	}
	return c
}

func bookingCache(c *threadCacheRepo.Cache) approval.BookingCache {
	if c == nil {
		return nil
	}
	return c
}

func render(w io.Writer, st conversation.State, msgs []models.ConversationMessage, anns []overlay.Annotation) {
	fmt.Fprintf(w, "\n== %s  page %d  more=%t  loading=%t  restores=%d\n",
		st.ConversationID, st.Page, st.HasMore, st.Loading, st.Restores)
	// Oldest first reads naturally in a terminal.
	for i := len(msgs) - 1; i >= 0; i-- {
		fmt.Fprintln(w, line(msgs[i], anns[i]))
	}
}

func line(m models.ConversationMessage, a overlay.Annotation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s  %-10s %-17s", m.CreatedAt.Format("01-02 15:04"), m.SenderID, m.Variant)
	if m.Pending {
		sb.WriteString(" (sending)")
	}
	if m.Content != "" {
		fmt.Fprintf(&sb, " %q", m.Content)
	}
	if len(m.ImageURLs) > 0 {
		fmt.Fprintf(&sb, " [%d image(s)]", len(m.ImageURLs))
	}
	if id := m.BookingID(); id != "" {
		fmt.Fprintf(&sb, " booking=%s", id)
	}
	if a.Decision.Overlay != overlay.None {
		fmt.Fprintf(&sb, " <%s>", a.Decision.Overlay)
	}
	if a.Buttons.Any() {
		var names []string
		if a.Buttons.Approve {
			names = append(names, "approve")
		}
		if a.Buttons.RequestChanges {
			names = append(names, "request-changes")
		}
		if a.Buttons.Edit {
			names = append(names, "edit")
		}
		if a.Buttons.Review {
			names = append(names, "review")
		}
		fmt.Fprintf(&sb, " buttons=%s", strings.Join(names, ","))
	}
	return sb.String()
}
