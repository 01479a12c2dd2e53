// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/LeeDigitalWorks/s3dr/pkg/config"
	"github.com/LeeDigitalWorks/s3dr/pkg/debug"
	"github.com/LeeDigitalWorks/s3dr/pkg/dr"
	"github.com/LeeDigitalWorks/s3dr/pkg/events"
	pkglambda "github.com/LeeDigitalWorks/s3dr/pkg/lambda"
	"github.com/LeeDigitalWorks/s3dr/pkg/logger"
	"github.com/LeeDigitalWorks/s3dr/pkg/notify"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/spf13/cobra"
)

// maxEventSize bounds POST /v1/events bodies.
const maxEventSize = 1 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the DR pipeline as a long-lived process",
	Long: `Serve consumes the provision and replication channels of a redis,
kafka or queue backend and runs the provisioner and enabler for every
message. Tag-change events are accepted on POST /v1/events of the debug
server, in the EventBridge format the Lambda watcher receives.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int(config.KeyDebugPort, 8080, "Port for /metrics, /health, /ready and /v1/events")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if cfg.Notify.Backend == notify.BackendSNS {
		return fmt.Errorf("serve needs a redis, kafka or queue backend; sns deliveries go to the Lambda stages")
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	rule, err := a.ruleTemplate(ctx)
	if err != nil {
		return err
	}

	bus, err := a.openBus(ctx, true)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.Notify.Backend, err)
	}
	defer bus.Close()

	watcher := a.watcher(bus.Publisher)
	provisioner := a.provisioner(bus.Publisher)
	enabler := a.enabler(rule)

	debug.RegisterHandlerFunc("POST /v1/events", eventsHandler(pkglambda.CloudWatch("watcher", watcher)))

	handlers := map[string]notify.Handler{
		cfg.Notify.ProvisionChannel:   stage(provisioner),
		cfg.Notify.ReplicationChannel: stage(enabler),
	}

	port := NewFlagLoader(cmd, v).Int(config.KeyDebugPort)
	logger.Info().
		Str("backend", bus.Subscriber.Name()).
		Str("provision_channel", cfg.Notify.ProvisionChannel).
		Str("replication_channel", cfg.Notify.ReplicationChannel).
		Int("debug_port", port).
		Msg("starting s3dr pipeline")

	return runPipeline(ctx, bus.Subscriber, handlers, func(ctx context.Context) error {
		return debug.Serve(ctx, fmt.Sprintf(":%d", port))
	})
}

// runPipeline runs the subscriber and the debug server until ctx is
// cancelled or either of them stops. It returns only after Subscribe has
// returned, so in-flight messages finish before the caller closes the bus.
func runPipeline(ctx context.Context, sub notify.Subscriber, handlers map[string]notify.Handler, serveDebug func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	debugErr := make(chan error, 1)
	go func() {
		debugErr <- serveDebug(ctx)
	}()

	subErr := make(chan error, 1)
	go func() {
		subErr <- sub.Subscribe(ctx, handlers)
	}()

	debug.SetReady()

	var err error
	subDone := false
	select {
	case err = <-subErr:
		subDone = true
	case err = <-debugErr:
		if err == nil {
			err = errors.New("debug server stopped")
		}
	case <-ctx.Done():
	}

	debug.SetNotReady()
	logger.Info().Msg("shutting down")
	cancel()

	if !subDone {
		if serr := <-subErr; err == nil {
			err = serr
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// messageHandler is a DR stage fed from a channel.
type messageHandler interface {
	Handle(ctx context.Context, msg notify.Message) (dr.Outcome, error)
}

// stage adapts h to a subscriber handler. A versioning halt is not
// returned, so the backend does not redeliver the message.
func stage(h messageHandler) notify.Handler {
	return func(ctx context.Context, msg notify.Message) error {
		_, err := h.Handle(ctx, msg)
		if errors.Is(err, dr.ErrVersioningNotEnabled) {
			return nil
		}
		return err
	}
}

// eventsHandler feeds EventBridge events to the watcher. Malformed events
// are rejected with 400; handler failures return 500.
func eventsHandler(handle func(context.Context, awsevents.CloudWatchEvent) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxEventSize))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var ev awsevents.CloudWatchEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			http.Error(w, "invalid event: "+err.Error(), http.StatusBadRequest)
			return
		}

		if err := handle(r.Context(), ev); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, events.ErrMalformedEvent) {
				status = http.StatusBadRequest
			}
			http.Error(w, err.Error(), status)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}
