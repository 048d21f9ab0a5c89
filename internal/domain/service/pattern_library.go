package service

import "aml-risk-engine/internal/domain/entity"

// BuildStandardPatternLibrary returns the eight standard pattern automata.
// They are data, not code: adding a new pattern means adding another
// PatternAutomaton literal here, not touching the engine.
func BuildStandardPatternLibrary() []*entity.PatternAutomaton {
	return []*entity.PatternAutomaton{
		mixerBridgeCEX(),
		rapidMixerChain(),
		peelChain(),
		structuring(),
		chainHopping(),
		sanctionsProximity(),
		darknetCashout(),
		ransomwareLaundering(),
	}
}

func catCond(c entity.EntityCategory) entity.Condition {
	return entity.Condition{Kind: entity.ConditionEntityCategory, Category: c}
}

func tagCond(tag string) entity.Condition {
	return entity.Condition{Kind: entity.ConditionEntityTag, Tag: tag}
}

func timeCond(hours float64) entity.Condition {
	return entity.Condition{Kind: entity.ConditionTimeWindow, Hours: hours}
}

func hopCond(n int) entity.Condition {
	return entity.Condition{Kind: entity.ConditionHopCount, Hops: n}
}

func volCond(v float64) entity.Condition {
	return entity.Condition{Kind: entity.ConditionVolumeThreshold, Volume: v}
}

func bridgeCond() entity.Condition {
	return entity.Condition{Kind: entity.ConditionBridgeCrossing}
}

func mixerCond() entity.Condition {
	return entity.Condition{Kind: entity.ConditionMixerHop}
}

func trans(target string, conditions ...entity.Condition) entity.Transition {
	return entity.Transition{Target: target, Conditions: conditions}
}

func st(id string, typ entity.StateType, transitions ...entity.Transition) *entity.State {
	return &entity.State{ID: id, Type: typ, Transitions: transitions}
}

func statesOf(states ...*entity.State) map[string]*entity.State {
	m := make(map[string]*entity.State, len(states))
	for _, s := range states {
		m[s.ID] = s
	}
	return m
}

// mixerBridgeCEX: target -> mixer -> bridge -> high-risk CEX.
func mixerBridgeCEX() *entity.PatternAutomaton {
	return &entity.PatternAutomaton{
		ID:          "MIXER_BRIDGE_CEX",
		DisplayName: "Mixer → Bridge → High-Risk CEX",
		Description: "Funds routed through a mixer, across a bridge, and cashed out at a high-risk exchange.",
		InitialID:   "start",
		Weight:      85,
		Severity:    entity.SeverityHigh,
		States: statesOf(
			st("start", entity.StateStart, trans("s1", mixerCond(), catCond(entity.EntityCategoryMixer))),
			st("s1", entity.StateNormal, trans("s2", bridgeCond(), catCond(entity.EntityCategoryBridge))),
			st("s2", entity.StateNormal, trans("accept", catCond(entity.EntityCategoryHighRiskCEX))),
			st("accept", entity.StateAccept),
		),
	}
}

// rapidMixerChain: three mixer hops inside a rolling six-hour window.
func rapidMixerChain() *entity.PatternAutomaton {
	return &entity.PatternAutomaton{
		ID:          "RAPID_MIXER_CHAIN",
		DisplayName: "Rapid Mixer Chain",
		Description: "Three or more mixer hops within a six-hour window.",
		InitialID:   "start",
		Weight:      75,
		Severity:    entity.SeverityHigh,
		States: statesOf(
			st("start", entity.StateStart, trans("s1", timeCond(6), mixerCond())),
			st("s1", entity.StateNormal, trans("s2", timeCond(6), hopCond(3), mixerCond())),
			st("s2", entity.StateNormal, trans("accept", timeCond(6), hopCond(5), mixerCond())),
			st("accept", entity.StateAccept),
		),
	}
}

// peelChain: repeated small hops, accepting once the chain exceeds five
// hops, modeling a peel-chain-length-over-five behaviour as a walk shape
// instead of a scalar flag. Hop-count conditions only bound a walk from
// above, so the length is counted by one state per hop (s1..s5): the walk
// accepts on its sixth hop.
func peelChain() *entity.PatternAutomaton {
	return &entity.PatternAutomaton{
		ID:          "PEEL_CHAIN",
		DisplayName: "Peel Chain",
		Description: "A long chain of successive small transfers peeling off a target's balance.",
		InitialID:   "start",
		Weight:      45,
		Severity:    entity.SeverityMedium,
		States: statesOf(
			st("start", entity.StateStart, trans("s1", hopCond(1))),
			st("s1", entity.StateNormal, trans("s2", hopCond(6))),
			st("s2", entity.StateNormal, trans("s3", hopCond(6))),
			st("s3", entity.StateNormal, trans("s4", hopCond(6))),
			st("s4", entity.StateNormal, trans("s5", hopCond(6))),
			st("s5", entity.StateNormal, trans("accept", hopCond(6), volCond(0))),
			st("accept", entity.StateAccept),
		),
	}
}

// structuring: many small hops inside a rolling 24-hour window
// (structuring / smurfing).
func structuring() *entity.PatternAutomaton {
	return &entity.PatternAutomaton{
		ID:          "STRUCTURING",
		DisplayName: "Structuring",
		Description: "Many small transfers placed in quick succession within a 24-hour window.",
		InitialID:   "start",
		Weight:      60,
		Severity:    entity.SeverityMedium,
		States: statesOf(
			st("start", entity.StateStart, trans("s1", timeCond(24), hopCond(1))),
			st("s1", entity.StateNormal, trans("s2", timeCond(24), hopCond(4))),
			st("s2", entity.StateNormal, trans("accept", timeCond(24), hopCond(8))),
			st("accept", entity.StateAccept),
		),
	}
}

// chainHopping: two distinct bridge crossings within six hops.
func chainHopping() *entity.PatternAutomaton {
	return &entity.PatternAutomaton{
		ID:          "CHAIN_HOPPING",
		DisplayName: "Chain Hopping",
		Description: "Funds crossing two different chains via bridges within a short hop budget.",
		InitialID:   "start",
		Weight:      55,
		Severity:    entity.SeverityMedium,
		States: statesOf(
			st("start", entity.StateStart, trans("s1", bridgeCond())),
			st("s1", entity.StateNormal, trans("accept", bridgeCond(), hopCond(6))),
			st("accept", entity.StateAccept),
		),
	}
}

// sanctionsProximity: direct or one-hop exposure to a sanctioned entity.
func sanctionsProximity() *entity.PatternAutomaton {
	return &entity.PatternAutomaton{
		ID:          "SANCTIONS_PROXIMITY",
		DisplayName: "Sanctions Proximity",
		Description: "Direct or one-hop exposure to a sanctioned entity.",
		InitialID:   "start",
		Weight:      90,
		Severity:    entity.SeverityCritical,
		States: statesOf(
			st("start", entity.StateStart,
				trans("accept", catCond(entity.EntityCategorySanctioned)),
				trans("s1", hopCond(1)),
			),
			st("s1", entity.StateNormal, trans("accept", hopCond(2), catCond(entity.EntityCategorySanctioned))),
			st("accept", entity.StateAccept),
		),
	}
}

// darknetCashout: funds leaving a darknet market and cashing out at an
// exchange within four hops.
func darknetCashout() *entity.PatternAutomaton {
	return &entity.PatternAutomaton{
		ID:          "DARKNET_CASHOUT",
		DisplayName: "Darknet Cash-Out",
		Description: "Funds originating at a darknet market cashed out at an exchange within four hops.",
		InitialID:   "start",
		Weight:      80,
		Severity:    entity.SeverityHigh,
		States: statesOf(
			st("start", entity.StateStart, trans("s1", catCond(entity.EntityCategoryDarknet))),
			st("s1", entity.StateNormal, trans("s2", hopCond(4))),
			st("s2", entity.StateNormal,
				trans("accept", hopCond(4), catCond(entity.EntityCategoryHighRiskCEX)),
				trans("accept", hopCond(4), catCond(entity.EntityCategoryCompliantCEX)),
			),
			st("accept", entity.StateAccept),
		),
	}
}

// ransomwareLaundering: ransomware proceeds routed through a mixer then a
// bridge.
func ransomwareLaundering() *entity.PatternAutomaton {
	return &entity.PatternAutomaton{
		ID:          "RANSOMWARE_LAUNDERING",
		DisplayName: "Ransomware Laundering",
		Description: "Ransomware proceeds laundered through a mixer and then a bridge.",
		InitialID:   "start",
		Weight:      95,
		Severity:    entity.SeverityCritical,
		States: statesOf(
			st("start", entity.StateStart, trans("s1", catCond(entity.EntityCategoryRansomware))),
			st("s1", entity.StateNormal, trans("s2", hopCond(5), mixerCond())),
			st("s2", entity.StateNormal, trans("accept", hopCond(7), bridgeCond())),
			st("accept", entity.StateAccept),
		),
	}
}
