package mapping_test

import (
	"testing"
	"time"

	"github.com/SscSPs/wallet_ledger/internal/core/domain"
	"github.com/SscSPs/wallet_ledger/internal/utils/mapping"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTransactionMapping_TransferID(t *testing.T) {
	now := time.Now().UTC()

	plain := domain.TransactionRecord{TransactionID: "t1", AccountID: "a1", Kind: domain.Deposit, Amount: decimal.NewFromInt(5), Timestamp: now, Sequence: 7}
	m := mapping.ToModelTransaction(plain)
	assert.False(t, m.TransferID.Valid, "deposits store a NULL transfer_id")
	assert.Equal(t, plain, mapping.ToDomainTransaction(m))

	leg := plain
	leg.Kind = domain.TransferCredit
	leg.TransferID = "tr1"
	m = mapping.ToModelTransaction(leg)
	assert.True(t, m.TransferID.Valid)
	assert.Equal(t, "tr1", m.TransferID.String)
	assert.Equal(t, leg, mapping.ToDomainTransaction(m))
}
