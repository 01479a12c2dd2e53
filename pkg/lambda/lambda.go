// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

// Package lambda adapts the DR stages to AWS Lambda event shapes. The
// watcher is triggered by EventBridge CloudTrail events, the chained
// stages by SNS.
package lambda

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LeeDigitalWorks/s3dr/pkg/dr"
	"github.com/LeeDigitalWorks/s3dr/pkg/events"
	"github.com/LeeDigitalWorks/s3dr/pkg/logger"
	"github.com/LeeDigitalWorks/s3dr/pkg/notify"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/getsentry/sentry-go"
)

// TriggerHandler handles a decoded tag-change event.
type TriggerHandler interface {
	Handle(ctx context.Context, t events.Trigger) (dr.Outcome, error)
}

// MessageHandler handles a chained hand-off.
type MessageHandler interface {
	Handle(ctx context.Context, msg notify.Message) (dr.Outcome, error)
}

// CloudWatch returns a Lambda handler for EventBridge events carrying a
// CloudTrail record.
func CloudWatch(name string, h TriggerHandler) func(context.Context, awsevents.CloudWatchEvent) error {
	return func(ctx context.Context, ev awsevents.CloudWatchEvent) error {
		ctx = requestContext(ctx, name)

		trigger, err := events.ParseDetail(ev.Detail)
		if err != nil {
			return report(ctx, name, err)
		}

		outcome, err := h.Handle(ctx, trigger)
		if err != nil {
			return report(ctx, name, err)
		}
		logger.Ctx(ctx).Debug().Str("outcome", string(outcome)).Msg("event handled")
		return nil
	}
}

// SNS returns a Lambda handler for SNS deliveries. Every record is
// handled; failures are joined into the returned error.
func SNS(name string, h MessageHandler) func(context.Context, awsevents.SNSEvent) error {
	return func(ctx context.Context, ev awsevents.SNSEvent) error {
		ctx = requestContext(ctx, name)

		if len(ev.Records) == 0 {
			return report(ctx, name, fmt.Errorf("%w: no SNS records", events.ErrMalformedEvent))
		}

		var errs []error
		for _, rec := range ev.Records {
			msg, err := notify.Decode([]byte(rec.SNS.Message))
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: message %s: %v", events.ErrMalformedEvent, rec.SNS.MessageID, err))
				continue
			}

			rctx := logger.With(ctx, "message_id", rec.SNS.MessageID)
			outcome, err := h.Handle(rctx, msg)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			logger.Ctx(rctx).Debug().Str("outcome", string(outcome)).Msg("message handled")
		}

		return report(ctx, name, errors.Join(errs...))
	}
}

func requestContext(ctx context.Context, name string) context.Context {
	l := logger.Ctx(ctx).With().Str("handler", name)
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		l = l.Str("request_id", lc.AwsRequestID)
	}
	log := l.Logger()
	return logger.WithLogger(ctx, &log)
}

// report logs err and sends it to Sentry before it is handed back to the
// Lambda runtime. A versioning halt is swallowed so the runtime does not
// retry the invocation; the bucket stays where the pipeline stopped.
func report(ctx context.Context, name string, err error) error {
	if err == nil {
		return nil
	}

	halt := halted(err)
	logger.Ctx(ctx).Error().Err(err).Bool("halted", halt).Msg("invocation failed")

	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("handler", name)
		if lc, ok := lambdacontext.FromContext(ctx); ok {
			scope.SetTag("request_id", lc.AwsRequestID)
		}
	})
	hub.CaptureException(err)
	// The runtime may freeze the process once the handler returns.
	hub.Flush(2 * time.Second)

	if halt {
		return nil
	}
	return err
}

// halted reports whether every failure in err is ErrVersioningNotEnabled.
func halted(err error) bool {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !halted(e) {
				return false
			}
		}
		return true
	}
	return errors.Is(err, dr.ErrVersioningNotEnabled)
}
