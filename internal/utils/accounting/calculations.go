package accounting

import (
	"fmt"
	"iter"

	"github.com/SscSPs/wallet_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SumRecords folds a transaction log into a balance, starting from zero.
// Every record's sign must agree with its kind; a record that does not is
// reported instead of being summed.
func SumRecords(records iter.Seq2[domain.TransactionRecord, error]) (decimal.Decimal, int, error) {
	sum := decimal.Zero
	count := 0
	for rec, err := range records {
		if err != nil {
			return decimal.Zero, count, err
		}
		if rec.Amount.Sign() != rec.Kind.Sign() {
			return decimal.Zero, count, fmt.Errorf("transaction %s: amount %s has the wrong sign for %s", rec.TransactionID, rec.Amount, rec.Kind)
		}
		sum = sum.Add(rec.Amount)
		count++
	}
	return sum, count, nil
}

// ApplyDelta returns the balance after applying a signed delta and whether the
// result stays non-negative.
func ApplyDelta(balance decimal.Decimal, delta decimal.Decimal) (decimal.Decimal, bool) {
	next := balance.Add(delta)
	return next, !next.IsNegative()
}
