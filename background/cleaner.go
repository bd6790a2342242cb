// Package background contains services that run outside the HTTP
// request-response cycle. The reset-token sweeper keeps expired password
// reset tokens from lingering in the users table: tokens are consumed on
// use, but an abandoned reset would otherwise leave its hash behind until
// the next reset overwrote it.
package background

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// sweepInterval is how often the sweeper looks for expired tokens.
	sweepInterval = 15 * time.Minute

	// sweepTimeout bounds each sweep's database work.
	sweepTimeout = 30 * time.Second
)

// StartResetTokenSweeper runs the sweep loop until stopChan closes. Call
// it in its own goroutine; it performs one sweep immediately so a restart
// does not wait a full interval to clear stale tokens.
func StartResetTokenSweeper(dbPool *pgxpool.Pool, stopChan <-chan struct{}) {
	log.Println("Background reset-token sweeper starting...")

	sweepExpiredTokens(dbPool)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sweepExpiredTokens(dbPool)
		case <-stopChan:
			log.Println("Background reset-token sweeper stopping.")
			return
		}
	}
}

// sweepExpiredTokens clears reset token fields on rows whose expiry has
// passed. Failures are logged and retried on the next tick; the sweep is
// hygiene, not correctness — expired tokens are already rejected at use.
func sweepExpiredTokens(dbPool *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	tag, err := dbPool.Exec(ctx,
		`UPDATE users
		 SET password_reset_token = NULL, password_reset_expires = NULL
		 WHERE password_reset_expires IS NOT NULL
		   AND password_reset_expires < now()`)
	if err != nil {
		log.Printf("Reset-token sweep failed: %v", err)
		return
	}
	if n := tag.RowsAffected(); n > 0 {
		log.Printf("Reset-token sweep cleared %d expired token(s)", n)
	}
}
