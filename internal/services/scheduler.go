package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// expiredTierBatch limits how many users one refresh pass re-evaluates.
const expiredTierBatch = 200

// StartTierRefresher schedules a periodic pass over users whose
// discount_valid_until has lapsed, so expired tiers decay without waiting
// for the user's next settlement. Settlements themselves stay event-driven;
// this is maintenance only.
func StartTierRefresher(users UserStore, tiers *TierEvaluator, every time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			refreshExpiredTiers(users, tiers)
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	log.Printf("[Scheduler] tier refresher running every %s", every)
	return sched, nil
}

func refreshExpiredTiers(users UserStore, tiers *TierEvaluator) {
	ctx := context.Background()
	now := time.Now()

	ids, err := users.ExpiredTiers(ctx, now, expiredTierBatch)
	if err != nil {
		log.Printf("[Scheduler] failed to list expired tiers: %v", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	for _, id := range ids {
		tiers.EvaluateQuietly(ctx, id, now)
	}
	log.Printf("[Scheduler] re-evaluated %d expired tiers", len(ids))
}
