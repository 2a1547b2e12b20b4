package main

import (
	"context"
	"log/slog"

	usertypes "github.com/goliatone/go-users/pkg/types"
)

// auditSink writes go-users activity records to the log.
type auditSink struct {
	logger *slog.Logger
}

func (s auditSink) Log(ctx context.Context, record usertypes.ActivityRecord) error {
	s.logger.InfoContext(ctx, "activity",
		"verb", record.Verb,
		"object_type", record.ObjectType,
		"object_id", record.ObjectID,
		"channel", record.Channel,
		"data", record.Data,
	)
	return nil
}
