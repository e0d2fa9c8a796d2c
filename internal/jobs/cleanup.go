package jobs

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/uran124/avito-relay/internal/session"
)

// CleanupJob prunes fallback session files that have been idle past their
// TTL. Primary-store rows are kept forever; only the degraded file state
// gets reclaimed.
type CleanupJob struct {
	sessions *session.Store
	maxAge   time.Duration
	interval time.Duration
	done     chan struct{}
}

func NewCleanupJob(sessions *session.Store, maxAge, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		sessions: sessions,
		maxAge:   maxAge,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("session cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("session cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	removed, err := j.sessions.PruneIdle(j.maxAge)
	if err != nil {
		log.Error().Err(err).Msg("session prune failed")
		return
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("pruned idle sessions")
	}
}
