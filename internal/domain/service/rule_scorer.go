package service

import (
	"math"

	"aml-risk-engine/internal/domain/entity"
)

// IllicitCategory names one of the six volume-weighted illicit-category
// dimensions.
type IllicitCategory string

const (
	CategoryMixersPrivacy       IllicitCategory = "mixers_privacy"
	CategoryStolenFunds         IllicitCategory = "stolen_funds"
	CategoryDarknetMarkets      IllicitCategory = "darknet_markets"
	CategoryScamsFraud          IllicitCategory = "scams_fraud"
	CategoryRansomware          IllicitCategory = "ransomware"
	CategoryTerroristFinancing  IllicitCategory = "terrorist_financing"
)

type categoryRule struct {
	multiplier   float64
	cap          int
	tag          string
	highSeverity entity.Severity
	lowSeverity  entity.Severity
	highAbove    float64 // v above this uses highSeverity; only mixers_privacy varies severity by v
}

var categoryRules = map[IllicitCategory]categoryRule{
	CategoryMixersPrivacy:      {multiplier: 0.6, cap: 20, tag: "MIXER_USAGE", highSeverity: entity.SeverityHigh, lowSeverity: entity.SeverityMedium, highAbove: 50},
	CategoryStolenFunds:        {multiplier: 0.8, cap: 25, tag: "STOLEN_FUNDS", highSeverity: entity.SeverityHigh, lowSeverity: entity.SeverityHigh},
	CategoryDarknetMarkets:     {multiplier: 0.7, cap: 20, tag: "DARKNET_MARKET", highSeverity: entity.SeverityHigh, lowSeverity: entity.SeverityHigh},
	CategoryScamsFraud:         {multiplier: 0.7, cap: 20, tag: "SCAM_FRAUD", highSeverity: entity.SeverityMedium, lowSeverity: entity.SeverityMedium},
	CategoryRansomware:         {multiplier: 0.9, cap: 30, tag: "RANSOMWARE", highSeverity: entity.SeverityCritical, lowSeverity: entity.SeverityCritical},
	CategoryTerroristFinancing: {multiplier: 1.0, cap: 70, tag: "TERRORIST_FINANCING", highSeverity: entity.SeverityCritical, lowSeverity: entity.SeverityCritical},
}

// categoryOrder fixes the table order so breakdown components are
// assembled deterministically.
var categoryOrder = []IllicitCategory{
	CategoryMixersPrivacy,
	CategoryStolenFunds,
	CategoryDarknetMarkets,
	CategoryScamsFraud,
	CategoryRansomware,
	CategoryTerroristFinancing,
}

// RuleExposure is the structured per-address exposure record the rule
// scorer consumes.
type RuleExposure struct {
	DirectSanctionedVolumePct   float64
	Indirect1HopVolumePct       float64
	Indirect2To4HopVolumePct    float64
	CategoryVolumePct           map[IllicitCategory]float64
	LastIllicitTxDaysAgo        *int // nil = no adjustment
	PeelChainLength             int
	OutDegree                   int
	InOutRatio                  float64
}

// RuleScorer is a purely additive, upper-clamped scorer over a structured
// exposure record. It is stateless and side-effect free.
type RuleScorer struct{}

func NewRuleScorer() *RuleScorer {
	return &RuleScorer{}
}

// Score computes a RiskScore from a RuleExposure. The function is pure: it
// never mutates its input and is safe to call concurrently across
// analyses.
func (s *RuleScorer) Score(exposure RuleExposure) entity.RiskScore {
	var components []entity.ScoreComponent
	var tags []entity.Tag
	var illicitVolume float64

	// Sanctions dimension: maximum single hit, not a sum.
	switch {
	case exposure.DirectSanctionedVolumePct > 0:
		components = append(components, entity.ScoreComponent{
			Dimension: "sanctions", Value: 60, Explanation: "direct sanctions exposure present",
		})
		tags = append(tags, entity.Tag{Code: "DIRECT_SANCTIONS", Severity: entity.SeverityCritical, Description: "direct sanctioned volume exposure"})
	case exposure.Indirect1HopVolumePct > 10:
		components = append(components, entity.ScoreComponent{
			Dimension: "sanctions", Value: 40, Explanation: "1-hop indirect sanctions exposure exceeds 10%",
		})
		tags = append(tags, entity.Tag{Code: "SANCTIONS_1HOP", Severity: entity.SeverityHigh, Description: "1-hop indirect sanctioned volume exposure"})
	case exposure.Indirect2To4HopVolumePct > 20:
		components = append(components, entity.ScoreComponent{
			Dimension: "sanctions", Value: 25, Explanation: "2-to-4-hop indirect sanctions exposure exceeds 20%",
		})
		tags = append(tags, entity.Tag{Code: "SANCTIONS_2_4HOP", Severity: entity.SeverityMedium, Description: "2-to-4-hop indirect sanctioned volume exposure"})
	}

	// Illicit-category dimension, additive, fixed table order.
	for _, cat := range categoryOrder {
		v := exposure.CategoryVolumePct[cat]
		if v <= 0 {
			continue
		}
		rule := categoryRules[cat]
		illicitVolume += v

		value := int(math.Trunc(rule.multiplier * v))
		if value > rule.cap {
			value = rule.cap
		}
		components = append(components, entity.ScoreComponent{
			Dimension:   string(cat),
			Value:       value,
			Explanation: categoryExplanation(cat, v),
		})

		severity := rule.highSeverity
		if cat == CategoryMixersPrivacy && v <= rule.highAbove {
			severity = rule.lowSeverity
		}
		tags = append(tags, entity.Tag{Code: rule.tag, Severity: severity, Description: categoryExplanation(cat, v)})
	}

	// Temporal adjustment.
	if exposure.LastIllicitTxDaysAgo != nil {
		age := *exposure.LastIllicitTxDaysAgo
		switch {
		case age > 365:
			components = append(components, entity.ScoreComponent{Dimension: "temporal", Value: -10, Explanation: "time decay"})
		case age < 30:
			components = append(components, entity.ScoreComponent{Dimension: "temporal", Value: 10, Explanation: "recent activity"})
		}
	}

	// Behavioural adjustments.
	if exposure.PeelChainLength > 5 {
		components = append(components, entity.ScoreComponent{Dimension: "behavioural_peel_chain", Value: 5, Explanation: "peel-chain pattern detected"})
		tags = append(tags, entity.Tag{Code: "PEEL_CHAIN", Severity: entity.SeverityMedium, Description: "peel-chain pattern detected"})
	}
	if exposure.OutDegree > 50 && exposure.InOutRatio < 0.2 {
		components = append(components, entity.ScoreComponent{Dimension: "behavioural_distribution", Value: 3, Explanation: "high fan-out distribution pattern"})
		tags = append(tags, entity.Tag{Code: "DISTRIBUTION_PATTERN", Severity: entity.SeverityLow, Description: "high fan-out distribution pattern"})
	}

	total := 0
	for _, c := range components {
		total += c.Value
	}
	total = entity.Clamp(total, 0, 100)

	return entity.RiskScore{
		Total:                   total,
		Level:                   entity.BandLevel(total),
		Breakdown:               components,
		Tags:                    tags,
		IllicitVolumePercentage: illicitVolume,
		CleanVolumePercentage:   100 - math.Min(illicitVolume, 100),
	}
}

func categoryExplanation(cat IllicitCategory, v float64) string {
	names := map[IllicitCategory]string{
		CategoryMixersPrivacy:      "mixers & privacy",
		CategoryStolenFunds:        "stolen funds",
		CategoryDarknetMarkets:     "darknet markets",
		CategoryScamsFraud:         "scams & fraud",
		CategoryRansomware:         "ransomware",
		CategoryTerroristFinancing: "terrorist financing",
	}
	return names[cat] + " volume exposure"
}
