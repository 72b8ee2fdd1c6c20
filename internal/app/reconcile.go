/**
 * @description
 * Scheduled re-verification of finalized domain claims. Claims are verified
 * synchronously at finalize time, but the chain can reorganize shortly after a
 * transaction first reports success. The reconcile job re-fetches each
 * not-yet-audited claim's transaction and, when the payment still checks out,
 * promotes the identity to verified. Claims that stop checking out are logged
 * for operator review; the claim record itself is immutable and is never
 * rewritten here.
 */

package app

import (
	"context"
	"errors"
	"log"

	"github.com/betterbns/domain-service/pkg/stacksclient"
)

const defaultReconcileLimit = 100

// ReconcileClaims audits up to limit unverified claims sequentially. It
// returns the number of claims promoted to verified.
func (s *Service) ReconcileClaims(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultReconcileLimit
	}
	users, err := s.repo.ListUnverifiedClaims(ctx, limit)
	if err != nil {
		return 0, err
	}

	promoted := 0
	for i := range users {
		user := &users[i]
		record, err := s.chain.GetTransaction(ctx, user.DomainClaim.TxID)
		if err != nil {
			if errors.Is(err, stacksclient.ErrTransactionNotFound) {
				log.Printf("level=warn component=claim_reconcile username=%s tx_id=%s msg=\"claim transaction no longer indexed\"", user.Username, user.DomainClaim.TxID)
			} else {
				log.Printf("level=warn component=claim_reconcile username=%s tx_id=%s msg=\"indexer read failed; will retry next run\" err=%v", user.Username, user.DomainClaim.TxID, err)
			}
			continue
		}

		if err := VerifyPayment(record, user.WalletAddress, s.treasuryAddress, user.DomainClaim.FeeMicroSTX); err != nil {
			log.Printf("level=error component=claim_reconcile username=%s tx_id=%s msg=\"claim no longer verifies\" err=%v", user.Username, user.DomainClaim.TxID, err)
			continue
		}

		if err := s.repo.MarkUserVerified(ctx, user.ID); err != nil {
			log.Printf("level=warn component=claim_reconcile username=%s msg=\"verified flag update failed\" err=%v", user.Username, err)
			continue
		}
		promoted++
	}

	if len(users) > 0 {
		log.Printf("level=info component=claim_reconcile audited=%d promoted=%d", len(users), promoted)
	}
	return promoted, nil
}
