package database

import (
	"context"
	"fmt"
	"time"

	domainsvc "aml-risk-engine/internal/domain/service"
	"aml-risk-engine/internal/infrastructure/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Neo4jTransactionSource implements domain/service.TransactionSource by
// reading previously indexed transfer edges out of Neo4J, newest first.
type Neo4jTransactionSource struct {
	client *Neo4jClient
	logger *logger.Logger
}

func NewNeo4jTransactionSource(client *Neo4jClient, log *logger.Logger) *Neo4jTransactionSource {
	return &Neo4jTransactionSource{client: client, logger: log.WithComponent("neo4j-transaction-source")}
}

const fetchTransactionsQuery = `
MATCH (a:Entity {address: $address})-[t:TRANSFERRED]-(b:Entity)
RETURN t.hash AS hash, t.timestamp AS timestamp, t.amount AS amount,
       t.asset AS asset, startNode(t).address AS fromAddr,
       endNode(t).address AS toAddr
ORDER BY t.timestamp DESC
LIMIT $limit
`

// Fetch returns up to maxN transactions touching address, newest first.
func (s *Neo4jTransactionSource) Fetch(ctx context.Context, address string, maxN int) ([]domainsvc.RawTransaction, error) {
	session := s.client.Session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransactionWithContext) (any, error) {
		records, err := tx.Run(ctx, fetchTransactionsQuery, map[string]any{
			"address": address,
			"limit":   maxN,
		})
		if err != nil {
			return nil, err
		}
		var raw []domainsvc.RawTransaction
		for records.Next(ctx) {
			rec := records.Record()
			rtx, err := recordToRawTransaction(rec, address)
			if err != nil {
				s.logger.Warn("skipping malformed transaction record", zap.Error(err))
				continue
			}
			raw = append(raw, rtx)
		}
		return raw, records.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j transaction source: fetch for %s: %w", address, err)
	}
	return result.([]domainsvc.RawTransaction), nil
}

func recordToRawTransaction(rec *neo4j.Record, perspective string) (domainsvc.RawTransaction, error) {
	hash, ok := rec.Get("hash")
	if !ok {
		return domainsvc.RawTransaction{}, fmt.Errorf("missing hash field")
	}
	fromAddr, _ := rec.Get("fromAddr")
	toAddr, _ := rec.Get("toAddr")
	amount, _ := rec.Get("amount")
	asset, _ := rec.Get("asset")
	timestampRaw, _ := rec.Get("timestamp")

	var ts time.Time
	switch v := timestampRaw.(type) {
	case neo4j.Date:
		ts = v.Time()
	case neo4j.LocalDateTime:
		ts = v.Time()
	case time.Time:
		ts = v
	case int64:
		ts = time.Unix(v, 0).UTC()
	}

	amountFloat, _ := amount.(float64)

	rtxType := domainsvc.RawTransactionSent
	from, _ := fromAddr.(string)
	to, _ := toAddr.(string)
	if to == perspective {
		rtxType = domainsvc.RawTransactionReceived
	}

	assetStr, _ := asset.(string)
	hashStr, _ := hash.(string)

	return domainsvc.RawTransaction{
		Hash:      hashStr,
		Timestamp: ts,
		Amount:    amountFloat,
		Asset:     assetStr,
		From:      from,
		To:        to,
		Type:      rtxType,
	}, nil
}
