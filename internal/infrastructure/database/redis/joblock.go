package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/logging"
	apperrors "github.com/patentlens/patentlens/pkg/errors"
)

// JobLock is the per-job pipeline mutex.  One worker holds a job at a time;
// a duplicate trigger fails to acquire and is dropped.  The TTL bounds how
// long a crashed worker can block the job, so it must exceed the pipeline
// deadline.
type JobLock struct {
	client *Client
	ttl    time.Duration
	logger logging.Logger
}

// unlockScript releases the lock only if this holder's token still owns it,
// so an expired-and-reacquired lock is never released by the old holder.
var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

func NewJobLock(client *Client, ttl time.Duration, log logging.Logger) *JobLock {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &JobLock{client: client, ttl: ttl, logger: log}
}

// Acquire takes the job's lock without waiting.  ok=false means another
// holder owns it.  The returned release is safe to call after the TTL has
// expired; it only deletes the key if the token still matches.
func (l *JobLock) Acquire(ctx context.Context, jobID string) (release func(), ok bool, err error) {
	key := l.client.key("joblock", jobID)
	token := uuid.NewString()

	acquired, err := l.client.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.ErrCodeCacheError, "acquire job lock")
	}
	if !acquired {
		return nil, false, nil
	}

	release = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := unlockScript.Run(ctx, l.client.rdb, []string{key}, token).Err(); err != nil {
			l.logger.Warn("releasing job lock failed",
				logging.String("job_id", jobID), logging.Err(err))
		}
	}
	return release, true, nil
}
