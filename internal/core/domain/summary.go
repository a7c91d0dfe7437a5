package domain

// TransactionSummary is the outcome of a committed deposit, withdrawal or transfer.
// Account is the wallet the caller acted on (the source for transfers).
type TransactionSummary struct {
	Account     Account             `json:"account"`
	Counterpart *Account            `json:"counterpart,omitempty"`
	TransferID  string              `json:"transferID,omitempty"`
	Records     []TransactionRecord `json:"records"`
}
