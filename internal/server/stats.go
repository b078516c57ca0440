package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/robfig/cron/v3"
)

const statsQueryTimeout = 5 * time.Second

// startStatsReporter schedules the periodic stats log line. An empty or
// "off" schedule disables it and returns a nil scheduler.
func (s *Server) startStatsReporter() (*cron.Cron, error) {
	schedule := strings.TrimSpace(s.cfg.StatsSchedule)
	if schedule == "" || strings.EqualFold(schedule, "off") {
		return nil, nil
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), statsQueryTimeout)
		defer cancel()
		s.reportStats(ctx)
	}); err != nil {
		return nil, fmt.Errorf("invalid stats schedule %q: %w", schedule, err)
	}

	c.Start()
	return c, nil
}

// reportStats logs one summary of the relay's state.
func (s *Server) reportStats(ctx context.Context) {
	stats, err := s.relay.Stats(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Stats query failed")
		return
	}

	s.log.Info().
		Int("connections", stats.Connections).
		Int("sessions", stats.Sessions).
		Str("history", fmt.Sprintf("%s/%s",
			humanize.Comma(int64(stats.HistoryMessages)),
			humanize.Comma(int64(stats.HistoryCapacity)))).
		Str("started", humanize.Time(s.started)).
		Msg("Relay stats")
}
