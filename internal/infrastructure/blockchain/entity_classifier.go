package blockchain

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"aml-risk-engine/internal/domain/entity"
	"aml-risk-engine/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// EthereumEntityClassifier implements domain/service.EntityClassifier. The
// decision order mirrors the bubble-map indexer's node classifier:
// blacklist/sanctions first, then bytecode-based EOA/contract detection,
// then known contracts, then exchange address patterns, then a default.
type EthereumEntityClassifier struct {
	rpc              RPCClient
	exchangePatterns map[string][]string
	knownContracts   map[string]entity.EntityType
	blacklistedAddrs map[string]string
	sanctionedAddrs  map[string]string
	darknetAddrs     map[string]string
	ransomwareAddrs  map[string]string
	logger           *logger.Logger
}

// NewEthereumEntityClassifier wires a classifier against an RPC client. The
// lookup tables are seeded with illustrative entries; production
// deployments load them from an external feed.
func NewEthereumEntityClassifier(rpc RPCClient, log *logger.Logger) *EthereumEntityClassifier {
	c := &EthereumEntityClassifier{
		rpc:    rpc,
		logger: log.WithComponent("entity-classifier"),
		exchangePatterns: map[string][]string{
			"binance":  {"^0x3f5ce5fbfe3e9af3971dd833d26ba9b5c936f0be$", "^0xd551234ae421e3bcba99a0da6d736074f22192ff$"},
			"coinbase": {"^0x71660c4005ba85c37ccec55d0c4493e66fe775d3$", "^0x503828976d22510aad0201ac7ec88293211d23da$"},
			"kraken":   {"^0x2910543af39aba0cd09dbb2d50200b3e800a63d2$"},
		},
		knownContracts: map[string]entity.EntityType{
			"0x1f9840a85d5af5bf1d1762f925bdaddc4201f984": entity.EntityTypeDecentralisedExchange,
			"0x6b3595068778dd592e39a122f4f5a5cf09c90fe2": entity.EntityTypeDecentralisedExchange,
			"0xa0b86a33e6441e01e5a7f92c1c7b0d0c5eb38e16": entity.EntityTypeMixer,
		},
		blacklistedAddrs: map[string]string{
			"0x1234567890abcdef1234567890abcdef12345678": "known ransomware address",
		},
		sanctionedAddrs: map[string]string{
			"0x1111111111111111111111111111111111111111": "OFAC sanctions list",
			"0x2222222222222222222222222222222222222222": "UN sanctions list",
		},
		darknetAddrs: map[string]string{
			"0x3333333333333333333333333333333333333333": "darknet market deposit address",
		},
		ransomwareAddrs: map[string]string{
			"0x4444444444444444444444444444444444444444": "ransomware extortion wallet",
		},
	}
	return c
}

// Classify determines an address's EntityType, EntityCategory, and tags.
func (c *EthereumEntityClassifier) Classify(ctx context.Context, address, chain string) (entity.EntityType, entity.EntityCategory, []string, error) {
	address = strings.ToLower(address)

	if _, ok := c.sanctionedAddrs[address]; ok {
		return entity.EntityTypeSanctioned, entity.EntityCategorySanctioned, []string{entity.TagSanctioned}, nil
	}
	if _, ok := c.ransomwareAddrs[address]; ok {
		return entity.EntityTypeScam, entity.EntityCategoryRansomware, nil, nil
	}
	if _, ok := c.darknetAddrs[address]; ok {
		return entity.EntityTypeDarknet, entity.EntityCategoryDarknet, []string{entity.TagDarknet}, nil
	}
	if _, ok := c.blacklistedAddrs[address]; ok {
		return entity.EntityTypeScam, entity.EntityCategoryScam, []string{entity.TagScam}, nil
	}

	isContract, err := c.isContract(ctx, address)
	if err != nil {
		return "", "", nil, fmt.Errorf("entity classifier: bytecode lookup for %s: %w", address, err)
	}

	if nodeType, ok := c.knownContracts[address]; ok {
		return nodeType, categoryForType(nodeType), tagsForType(nodeType), nil
	}

	for exchange, patterns := range c.exchangePatterns {
		for _, pattern := range patterns {
			if matched, _ := regexp.MatchString(pattern, address); matched {
				c.logger.Debug("matched exchange address pattern", zap.String("exchange", exchange), zap.String("address", address))
				return entity.EntityTypeCentralisedExchange, entity.EntityCategoryCompliantCEX, nil, nil
			}
		}
	}

	if isContract {
		return entity.EntityTypeContract, entity.EntityCategoryClean, nil, nil
	}
	return entity.EntityTypeExternallyOwned, entity.EntityCategoryClean, nil, nil
}

func (c *EthereumEntityClassifier) isContract(ctx context.Context, address string) (bool, error) {
	if c.rpc == nil {
		return false, nil
	}
	code, err := c.rpc.CodeAt(ctx, address, nil)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

func categoryForType(t entity.EntityType) entity.EntityCategory {
	switch t {
	case entity.EntityTypeMixer:
		return entity.EntityCategoryMixer
	case entity.EntityTypeBridge:
		return entity.EntityCategoryBridge
	case entity.EntityTypeDecentralisedExchange, entity.EntityTypeCentralisedExchange:
		return entity.EntityCategoryCompliantCEX
	case entity.EntityTypeDarknet:
		return entity.EntityCategoryDarknet
	case entity.EntityTypeScam:
		return entity.EntityCategoryScam
	case entity.EntityTypeSanctioned:
		return entity.EntityCategorySanctioned
	default:
		return entity.EntityCategoryClean
	}
}

func tagsForType(t entity.EntityType) []string {
	switch t {
	case entity.EntityTypeMixer:
		return []string{entity.TagMixer}
	case entity.EntityTypeDarknet:
		return []string{entity.TagDarknet}
	case entity.EntityTypeScam:
		return []string{entity.TagScam}
	case entity.EntityTypeSanctioned:
		return []string{entity.TagSanctioned}
	default:
		return nil
	}
}
