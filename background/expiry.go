// Package background runs the periodic jobs that keep session state
// honest, currently just the expiry sweeper.
package background

import (
	"context"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/valey/valey-go/auth"
	"github.com/valey/valey-go/authevents"
)

// ExpirySweeper walks the session expiry index and turns lapsed sessions
// into signed-out events, so the hub and any connected event stream see
// an expiry the same way they see an explicit sign-out.
type ExpirySweeper struct {
	rdb      *redis.Client
	bus      *authevents.Bus
	interval time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewExpirySweeper creates a sweeper ticking at the given interval.
func NewExpirySweeper(rdb *redis.Client, bus *authevents.Bus, interval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ExpirySweeper{
		rdb:      rdb,
		bus:      bus,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start launches the sweep loop. It is a no-op without a Redis client,
// since without session records there is nothing to expire.
func (s *ExpirySweeper) Start() {
	if s.rdb == nil {
		log.Println("expiry sweeper: no session store configured, not starting")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		log.Printf("expiry sweeper: started, interval %s", s.interval)
		for {
			select {
			case <-s.stop:
				log.Println("expiry sweeper: stopped")
				return
			case <-ticker.C:
				s.sweep(context.Background())
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (s *ExpirySweeper) Stop() {
	close(s.stop)
	s.wg.Wait()
}

// sweep publishes a signed-out event for every session whose expiry time
// has passed, then removes its record and index entry.
func (s *ExpirySweeper) sweep(ctx context.Context) {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	members, err := s.rdb.ZRangeByScore(ctx, auth.SessionExpirySet, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		log.Printf("expiry sweeper: failed to read expiry index: %v", err)
		return
	}

	for _, member := range members {
		sessionID, userID, email, ok := parseIndexMember(member)
		if !ok {
			log.Printf("expiry sweeper: malformed index member %q, dropping", member)
		} else {
			s.bus.Publish(authevents.Event{
				Kind:   authevents.SignedOut,
				UserID: userID,
				Email:  email,
			})
			if err := s.rdb.Del(ctx, auth.SessionRecordKey(sessionID)).Err(); err != nil {
				log.Printf("expiry sweeper: failed to delete session %s: %v", sessionID, err)
			}
		}
		if err := s.rdb.ZRem(ctx, auth.SessionExpirySet, member).Err(); err != nil {
			log.Printf("expiry sweeper: failed to prune index member: %v", err)
		}
	}

	if len(members) > 0 {
		log.Printf("expiry sweeper: expired %d session(s)", len(members))
	}
}

// parseIndexMember splits the "sessionID|userID|email" index member.
func parseIndexMember(member string) (sessionID, userID, email string, ok bool) {
	parts := strings.SplitN(member, "|", 3)
	if len(parts) != 3 || parts[0] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}
