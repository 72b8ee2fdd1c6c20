/**
 * @description
 * Confirmation polling for domain claim payments. A claim payment is broadcast
 * by the user's wallet; the service then watches the chain indexer until the
 * transaction reaches a terminal state or the attempt ceiling is hit.
 *
 * Key behaviors:
 * - Attempts are strictly sequential; a txId is never polled in parallel.
 * - The wait between attempts is a real suspension (timer + context select),
 *   so an in-flight poll never blocks unrelated requests.
 * - Transient errors and not-yet-indexed transactions consume attempts; they
 *   do not earn extra retries beyond the ceiling.
 * - An aborted or failed transaction stops polling immediately: it can never
 *   become successful, so burning the remaining attempts would only delay the
 *   user's error message.
 *
 * @dependencies
 * - context, errors, log, time: Standard Go libraries.
 * - pkg/stacksclient: The chain indexer client and record types.
 */

package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/betterbns/domain-service/pkg/stacksclient"
)

// ChainReader is the read-only view of the ledger indexer the poller consumes.
type ChainReader interface {
	GetTransaction(ctx context.Context, txID string) (*stacksclient.TransactionRecord, error)
}

// ConfirmationState is the terminal state of a polling run.
type ConfirmationState string

const (
	ConfirmationConfirmed ConfirmationState = "confirmed"
	ConfirmationAborted   ConfirmationState = "aborted"
	ConfirmationTimedOut  ConfirmationState = "timed_out"
)

// ConfirmationVerdict is the outcome of AwaitConfirmation. Record is the last
// fetched transaction record and is non-nil for Confirmed and Aborted verdicts.
type ConfirmationVerdict struct {
	State    ConfirmationState
	Record   *stacksclient.TransactionRecord
	Attempts int
}

// ConfirmationPoller repeatedly reads a transaction's state until it settles.
type ConfirmationPoller struct {
	reader      ChainReader
	maxAttempts int
	interval    time.Duration
}

// NewConfirmationPoller creates a poller with the given attempt ceiling and
// inter-attempt interval. Both come from configuration, not code constants.
func NewConfirmationPoller(reader ChainReader, maxAttempts int, interval time.Duration) *ConfirmationPoller {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &ConfirmationPoller{
		reader:      reader,
		maxAttempts: maxAttempts,
		interval:    interval,
	}
}

// AwaitConfirmation polls the indexer for txID until the transaction confirms,
// aborts, or the attempt ceiling is exhausted. The first attempt fires
// immediately; subsequent attempts are separated by the configured interval.
// Context cancellation (the user abandoning the claim) stops the loop with the
// context's error; nothing has been persisted at that point.
func (p *ConfirmationPoller) AwaitConfirmation(ctx context.Context, txID string) (*ConfirmationVerdict, error) {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		record, err := p.reader.GetTransaction(ctx, txID)
		switch {
		case err == nil && record.IsSuccess():
			return &ConfirmationVerdict{State: ConfirmationConfirmed, Record: record, Attempts: attempt}, nil
		case err == nil && record.IsTerminalFailure():
			log.Printf("level=info component=confirmation_poller tx_id=%s status=%s attempt=%d msg=\"transaction terminally failed; stopping early\"", txID, record.TxStatus, attempt)
			return &ConfirmationVerdict{State: ConfirmationAborted, Record: record, Attempts: attempt}, nil
		case err == nil:
			// Still pending; fall through to the wait.
		case errors.Is(err, stacksclient.ErrTransactionNotFound):
			// Not indexed yet; indistinguishable from pending.
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			log.Printf("level=warn component=confirmation_poller tx_id=%s attempt=%d msg=\"transient read error\" err=%v", txID, attempt, err)
		}

		if attempt == p.maxAttempts {
			break
		}
		if err := sleepCtx(ctx, p.interval); err != nil {
			return nil, err
		}
	}

	return &ConfirmationVerdict{State: ConfirmationTimedOut, Attempts: p.maxAttempts}, nil
}

// sleepCtx waits for d or until the context is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
