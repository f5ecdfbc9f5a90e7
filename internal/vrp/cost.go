package vrp

// CostEvaluator holds the non-negative per-dimension penalty weights and
// turns route/solution state into a single scalar objective. Linear
// penalties let every move evaluator compute deltas in O(1) by subtracting
// old penalties and adding new ones on just the affected routes.
type CostEvaluator struct {
	weightCapacityPenalty  Cost
	volumeCapacityPenalty  Cost
	salvageCapacityPenalty Cost
	storesLimitPenalty     Cost
	timeWarpPenalty        Cost
}

// NewCostEvaluator builds a CostEvaluator from the five dimension weights.
func NewCostEvaluator(weightPenalty, volumePenalty, salvagePenalty, storesPenalty, timeWarpPenalty Cost) *CostEvaluator {
	return &CostEvaluator{
		weightCapacityPenalty:  weightPenalty,
		volumeCapacityPenalty:  volumePenalty,
		salvageCapacityPenalty: salvagePenalty,
		storesLimitPenalty:     storesPenalty,
		timeWarpPenalty:        timeWarpPenalty,
	}
}

// WeightPenaltyExcess returns the penalty for a given excess weight.
func (ce *CostEvaluator) WeightPenaltyExcess(excessWeight Load) Cost {
	return Cost(excessWeight) * ce.weightCapacityPenalty
}

// WeightPenalty returns the penalty for the given load against capacity.
func (ce *CostEvaluator) WeightPenalty(load, capacity Load) Cost {
	if load <= capacity {
		return 0
	}
	return ce.WeightPenaltyExcess(load - capacity)
}

// VolumePenaltyExcess returns the penalty for a given excess volume.
func (ce *CostEvaluator) VolumePenaltyExcess(excessVolume Load) Cost {
	return Cost(excessVolume) * ce.volumeCapacityPenalty
}

// VolumePenalty returns the penalty for the given volume against capacity.
func (ce *CostEvaluator) VolumePenalty(volume, capacity Load) Cost {
	if volume <= capacity {
		return 0
	}
	return ce.VolumePenaltyExcess(volume - capacity)
}

// SalvagePenaltyExcess returns the penalty for a given excess salvage load.
func (ce *CostEvaluator) SalvagePenaltyExcess(excessSalvage Salvage) Cost {
	return Cost(excessSalvage) * ce.salvageCapacityPenalty
}

// SalvagePenalty returns the penalty for the given salvage load against capacity.
func (ce *CostEvaluator) SalvagePenalty(salvage, capacity Salvage) Cost {
	if salvage <= capacity {
		return 0
	}
	return ce.SalvagePenaltyExcess(salvage - capacity)
}

// StoresPenaltyExcess returns the penalty for a given excess distinct-store count.
func (ce *CostEvaluator) StoresPenaltyExcess(excessStores Store) Cost {
	return Cost(excessStores) * ce.storesLimitPenalty
}

// StoresPenalty returns the penalty for the given distinct-store count against the limit.
func (ce *CostEvaluator) StoresPenalty(stores, limit Store) Cost {
	if stores <= limit {
		return 0
	}
	return ce.StoresPenaltyExcess(stores - limit)
}

// TimeWarpPenalty returns the penalty for the given amount of time warp.
func (ce *CostEvaluator) TimeWarpPenalty(timeWarp Duration) Cost {
	return Cost(timeWarp) * ce.timeWarpPenalty
}

// PenalisedCost computes distance + uncollected prizes + the weighted sum
// of per-dimension overflow. This is what local search optimizes, and it
// remains comparable even for infeasible solutions.
func (ce *CostEvaluator) PenalisedCost(sol *Solution) Cost {
	return Cost(sol.Distance()) + sol.UncollectedPrizes() +
		ce.WeightPenaltyExcess(sol.ExcessWeight()) +
		ce.VolumePenaltyExcess(sol.ExcessVolume()) +
		ce.SalvagePenaltyExcess(sol.ExcessSalvage()) +
		ce.StoresPenaltyExcess(sol.ExcessStores()) +
		ce.TimeWarpPenalty(sol.TimeWarp())
}

// Cost returns PenalisedCost when the solution is feasible, or the largest
// representable cost otherwise: infeasibility is not an error, but it is
// never preferable to any feasible solution under this ordering.
func (ce *CostEvaluator) Cost(sol *Solution) Cost {
	if !sol.IsFeasible() {
		return CostMax
	}
	return ce.PenalisedCost(sol)
}
