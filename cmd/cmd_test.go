// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LeeDigitalWorks/s3dr/pkg/dr"
	"github.com/LeeDigitalWorks/s3dr/pkg/events"
	"github.com/LeeDigitalWorks/s3dr/pkg/notify"
	"github.com/LeeDigitalWorks/s3dr/pkg/storage"
	"github.com/LeeDigitalWorks/s3dr/pkg/tags"

	awsevents "github.com/aws/aws-lambda-go/events"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagLoader(t *testing.T) {
	t.Parallel()

	newCmd := func() (*cobra.Command, *viper.Viper) {
		c := &cobra.Command{Use: "test"}
		c.Flags().Float64("bootstrap_rate", 5, "")
		c.Flags().Int("debug_port", 8080, "")
		fv := viper.New()
		fv.Set("bootstrap_rate", 2.5)
		fv.Set("debug_port", 9090)
		return c, fv
	}

	t.Run("viper value when flag unset", func(t *testing.T) {
		t.Parallel()
		c, fv := newCmd()
		fl := NewFlagLoader(c, fv)
		assert.Equal(t, 2.5, fl.Float64("bootstrap_rate"))
		assert.Equal(t, 9090, fl.Int("debug_port"))
	})

	t.Run("explicit flag wins", func(t *testing.T) {
		t.Parallel()
		c, fv := newCmd()
		require.NoError(t, c.Flags().Set("bootstrap_rate", "0"))
		require.NoError(t, c.Flags().Set("debug_port", "7070"))
		fl := NewFlagLoader(c, fv)
		assert.Equal(t, 0.0, fl.Float64("bootstrap_rate"))
		assert.Equal(t, 7070, fl.Int("debug_port"))
	})
}

func TestEventsHandler(t *testing.T) {
	t.Parallel()

	const body = `{"detail-type":"AWS API Call via CloudTrail","source":"aws.s3","detail":{"eventName":"PutBucketTagging","requestParameters":{"bucketName":"orders"}}}`

	tests := []struct {
		name       string
		body       string
		handleErr  error
		wantStatus int
		wantCalled bool
	}{
		{name: "accepted", body: body, wantStatus: http.StatusAccepted, wantCalled: true},
		{name: "not json", body: "{", wantStatus: http.StatusBadRequest},
		{
			name:       "malformed detail",
			body:       body,
			handleErr:  fmt.Errorf("%w: no bucket", events.ErrMalformedEvent),
			wantStatus: http.StatusBadRequest,
			wantCalled: true,
		},
		{
			name:       "handler failure",
			body:       body,
			handleErr:  errors.New("publish failed"),
			wantStatus: http.StatusInternalServerError,
			wantCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got *awsevents.CloudWatchEvent
			h := eventsHandler(func(_ context.Context, ev awsevents.CloudWatchEvent) error {
				got = &ev
				return tt.handleErr
			})

			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if !tt.wantCalled {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, "aws.s3", got.Source)
			assert.Contains(t, string(got.Detail), "PutBucketTagging")
		})
	}
}

func TestPrintResults(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printResults(&buf, []dr.Result{
		{Bucket: "orders", Outcome: dr.OutcomeReplicationEnabled},
		{Bucket: "scratch", Outcome: dr.OutcomeOutOfScope},
		{Bucket: "broken", Outcome: dr.OutcomeFailed, Err: errors.New("access denied")},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "BUCKET")
	assert.Contains(t, lines[1], "orders-dr")
	assert.Contains(t, lines[1], string(dr.OutcomeReplicationEnabled))
	assert.Contains(t, lines[2], string(dr.OutcomeOutOfScope))
	assert.Contains(t, lines[3], "access denied")
}

func TestCheckView(t *testing.T) {
	t.Parallel()

	report := dr.Report{
		Bucket:      "orders",
		Tags:        tags.Set{"dr": "true"},
		InScope:     true,
		Versioning:  s3types.BucketVersioningStatusEnabled,
		Replication: storage.ReplicationStatus{Configured: true, Enabled: true, Destination: "arn:aws:s3:::orders-dr"},
		Destination: "orders-dr",

		DestinationExists:     true,
		DestinationVersioning: s3types.BucketVersioningStatusEnabled,
	}

	view := newCheckView(report, nil)
	assert.Equal(t, dr.StateReplicationEnabled, view.State)
	assert.Equal(t, "Enabled", view.Versioning)
	assert.Equal(t, "arn:aws:s3:::orders-dr", view.ReplicationTarget)
	assert.Empty(t, view.Error)

	view = newCheckView(dr.Report{Bucket: "new", Destination: "new-dr"}, errors.New("no such bucket"))
	assert.Equal(t, "Unversioned", view.Versioning)
	assert.Equal(t, "no such bucket", view.Error)

	var buf bytes.Buffer
	printChecks(&buf, []checkView{view})
	assert.Contains(t, buf.String(), "new-dr (missing)")
}

// drainingSubscriber finishes its in-flight message only after ctx is
// cancelled, the way the queue worker does on Stop.
type drainingSubscriber struct {
	drained atomic.Bool
}

func (s *drainingSubscriber) Name() string { return "draining" }
func (s *drainingSubscriber) Close() error { return nil }

func (s *drainingSubscriber) Subscribe(ctx context.Context, handlers map[string]notify.Handler) error {
	<-ctx.Done()
	time.Sleep(50 * time.Millisecond)
	s.drained.Store(true)
	return nil
}

func TestRunPipeline_WaitsForSubscriberOnCancel(t *testing.T) {
	t.Parallel()

	sub := &drainingSubscriber{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- runPipeline(ctx, sub, nil, func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		})
	}()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop")
	}
	assert.True(t, sub.drained.Load(), "returned before the subscriber drained")
}

func TestRunPipeline_DebugServerFailure(t *testing.T) {
	t.Parallel()

	sub := &drainingSubscriber{}
	err := runPipeline(context.Background(), sub, nil, func(ctx context.Context) error {
		return errors.New("listen tcp :8080: bind: address already in use")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")
	assert.True(t, sub.drained.Load())
}

type outcomeFunc func(ctx context.Context, msg notify.Message) (dr.Outcome, error)

func (f outcomeFunc) Handle(ctx context.Context, msg notify.Message) (dr.Outcome, error) {
	return f(ctx, msg)
}

func TestStage(t *testing.T) {
	t.Parallel()

	halt := stage(outcomeFunc(func(ctx context.Context, msg notify.Message) (dr.Outcome, error) {
		return dr.OutcomeFailed, fmt.Errorf("%s-dr: %w", msg.BucketName, dr.ErrVersioningNotEnabled)
	}))
	assert.NoError(t, halt(context.Background(), notify.Message{BucketName: "orders"}))

	fail := stage(outcomeFunc(func(ctx context.Context, msg notify.Message) (dr.Outcome, error) {
		return dr.OutcomeFailed, errors.New("AccessDenied")
	}))
	assert.EqualError(t, fail(context.Background(), notify.Message{BucketName: "orders"}), "AccessDenied")
}
