package types

import "github.com/shopspring/decimal"

type PortfolioItem struct {
	Id       int      `json:"id"`
	Contract Contract `json:"contract"`
}

type EnergyTypeMetrics struct {
	CapacityMwh decimal.Decimal `json:"capacity_mwh"`
	Cost        decimal.Decimal `json:"cost"`
}

type PortfolioMetrics struct {
	TotalContracts         int                          `json:"total_contracts"`
	TotalCapacityMwh       int                          `json:"total_capacity_mwh"`
	TotalCost              decimal.Decimal              `json:"total_cost"`
	WeightedAvgPricePerMwh decimal.Decimal              `json:"weighted_avg_price_per_mwh"`
	ByEnergyType           map[string]EnergyTypeMetrics `json:"by_energy_type"`
}
