package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"teamstream/internal/agent/apiclient"
	"teamstream/internal/agent/reconciler"
	"teamstream/internal/agent/store"
	"teamstream/internal/agent/subscriber"
	"teamstream/internal/core/domain"
	"teamstream/internal/infrastructure/monitoring"
	"teamstream/pkg/config"
	"teamstream/pkg/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// The agent logs in as a user, keeps a live subscription to that user's
// channels, and reconciles the team's stream listing in the background.
func main() {
	var (
		apiURL      = flag.String("api", "http://localhost:8080", "teamstream API base URL")
		wsURL       = flag.String("ws", "ws://localhost:8081/ws", "broadcaster websocket URL")
		userID      = flag.String("user", "", "user to log in as")
		teamID      = flag.String("team", "", "team whose streams to reconcile")
		metricsAddr = flag.String("metrics", "", "address for the Prometheus endpoint, empty to disable")
	)
	flag.Parse()

	configPath := os.Getenv("TEAMSTREAM_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		cfg = config.DefaultConfig()
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	if *userID == "" || *teamID == "" {
		log.Fatal("both -user and -team are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := apiclient.New(*apiURL, cfg.Reconciler.FetchTimeout)
	token, err := client.Login(ctx, domain.UserID(*userID))
	if err != nil {
		log.Fatalw("login failed", "user", *userID, "error", err)
	}
	log.Infow("logged in", "user", *userID)

	streamStore := store.New(24 * time.Hour)
	defer streamStore.Close()

	var recMetrics reconciler.Metrics
	if *metricsAddr != "" {
		recMetrics = monitoring.NewReconcilerCollector()
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Errorw("metrics endpoint failed", "error", err)
			}
		}()
	}

	rec := reconciler.New(reconciler.Config{
		FetchTimeout:  cfg.Reconciler.FetchTimeout,
		FlushInterval: cfg.Reconciler.FlushInterval,
	}, streamStore, func(batch []domain.StreamSummary) {
		for _, s := range batch {
			log.Infow("stream resolved", "stream", s.ID, "name", s.Name, "type", s.Type)
		}
	}, recMetrics, log)

	policy := reconciler.GroupingPolicy{
		Channel:    cfg.Reconciler.Groupings.Channel,
		Group:      cfg.Reconciler.Groupings.Group,
		MultiParty: cfg.Reconciler.Groupings.MultiParty,
		Direct:     cfg.Reconciler.Groupings.Direct,
	}

	resync := func() {
		summaries, err := client.ListStreams(ctx, domain.TeamID(*teamID))
		if err != nil {
			// the bulk listing is the one caller-visible failure
			log.Errorw("bulk stream listing failed", "team", *teamID, "error", err)
			return
		}
		rec.SetStreams(ctx, summaries, buildDeferred(client, policy, summaries))
	}

	sub := subscriber.New(subscriber.DefaultConfig(*wsURL, token), func(env *domain.Envelope) {
		log.Infow("message received", "channel", env.Channel, "requestId", env.RequestID)
		if env.Payload.Directive != nil && env.Payload.Directive.Op == domain.OpPull {
			log.Infow("membership revoked", "field", env.Payload.Directive.Field, "values", env.Payload.Directive.Values)
		}
	}, log)
	sub.OnConnect = resync

	if err := sub.Subscribe(domain.UserChannel(domain.UserID(*userID))); err != nil {
		log.Warnw("subscribe failed", "error", err)
	}
	if err := sub.Subscribe(domain.TeamChannel(domain.TeamID(*teamID))); err != nil {
		log.Warnw("subscribe failed", "error", err)
	}

	go sub.Run(ctx)

	<-ctx.Done()
	log.Infow("agent stopped",
		"resolved", streamStore.Len(),
		"fetch_failures", rec.FailureCount(),
		"fetch_timeouts", rec.TimeoutCount(),
	)
}

// buildDeferred wraps each summary in a detail fetch, classified for the
// grouping policy and ordered alphabetically within a tier.
func buildDeferred(client *apiclient.Client, policy reconciler.GroupingPolicy, summaries []domain.StreamSummary) []*reconciler.Deferred {
	ordered := append([]domain.StreamSummary(nil), summaries...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })

	deferred := make([]*reconciler.Deferred, 0, len(ordered))
	for i, s := range ordered {
		class := classify(s)
		id := s.ID
		deferred = append(deferred, &reconciler.Deferred{
			Summary:  s,
			Class:    class,
			Grouping: policy.For(class),
			Order:    i,
			Fetch: func(ctx context.Context) (*domain.StreamSummary, error) {
				return client.FetchStreamDetail(ctx, id)
			},
		})
	}
	return deferred
}

func classify(s domain.StreamSummary) reconciler.ChannelClass {
	switch s.Type {
	case domain.StreamTypeDirect:
		return reconciler.ClassDirect
	default:
		return reconciler.ClassChannel
	}
}
