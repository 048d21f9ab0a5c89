package service

import (
	"context"
	"time"
)

// RawTransactionType is the counterparty-relative direction reported by the
// Transaction Source.
type RawTransactionType string

const (
	RawTransactionReceived RawTransactionType = "received"
	RawTransactionSent     RawTransactionType = "sent"
	RawTransactionInternal RawTransactionType = "internal"
)

// RawTransaction is one entry returned by the Transaction Source, newest
// first.
type RawTransaction struct {
	Hash      string
	Timestamp time.Time
	Amount    float64
	Asset     string
	From      string
	To        string
	Type      RawTransactionType
	Tags      []string
}

// TransactionSource is the external collaborator supplying paginated
// historical transactions for an address. Ordering newest-first is
// required; implementations may fail with
// entity.KindTransactionSourceUnavailable.
type TransactionSource interface {
	Fetch(ctx context.Context, address string, maxN int) ([]RawTransaction, error)
}
