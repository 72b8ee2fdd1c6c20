/**
 * @description
 * Server-side verification of domain claim payments. The browser already
 * waited for the transaction, but the client's belief about its own payment is
 * untrusted input: only a record the service fetched itself is authoritative.
 * Each failure mode gets its own sentinel so the API can tell the user exactly
 * what went wrong instead of one generic rejection.
 *
 * @dependencies
 * - errors, strconv: Standard Go libraries.
 * - pkg/stacksclient: The transaction record types.
 */

package app

import (
	"errors"
	"strconv"

	"github.com/betterbns/domain-service/pkg/stacksclient"
)

var (
	// ErrPaymentNotConfirmed means the record is not in a successful state.
	ErrPaymentNotConfirmed = errors.New("payment transaction is not confirmed")
	// ErrSenderMismatch means someone else's payment was presented for this
	// claim. Rejecting it prevents claim-hijacking via an unrelated transfer.
	ErrSenderMismatch = errors.New("payment sender does not match the claiming wallet")
	// ErrTransferMismatch means no event on the transaction moved the exact
	// fee to the treasury address.
	ErrTransferMismatch = errors.New("no matching fee transfer to the treasury was found")
)

// VerifyPayment checks a fetched transaction record against the expected
// sender, treasury recipient, and exact fee amount (micro-STX). A nil return
// means the payment is valid for finalizing the claim. Re-running the same
// check on the same confirmed record always yields the same result, so a
// verification failure is never retried.
func VerifyPayment(record *stacksclient.TransactionRecord, expectedSender, expectedRecipient string, expectedAmount int64) error {
	if record == nil || !record.IsSuccess() {
		return ErrPaymentNotConfirmed
	}
	if record.SenderAddress != expectedSender {
		return ErrSenderMismatch
	}
	for _, event := range record.Events {
		if event.EventType != "stx_asset" {
			continue
		}
		if event.Asset.Recipient != expectedRecipient {
			continue
		}
		amount, err := strconv.ParseInt(event.Asset.Amount, 10, 64)
		if err != nil {
			continue
		}
		// Exact match: the claim fee is a fixed amount, not a minimum.
		if amount == expectedAmount {
			return nil
		}
	}
	return ErrTransferMismatch
}
