package analysis

import "time"

// AssetAnalysis is one asset's persisted analysis row. Volatility and
// SevenDayReturn are nil when the price history was too short to compute
// them.
type AssetAnalysis struct {
	AssetID            string   `json:"asset_id"`
	Volatility         *float64 `json:"volatility"`
	SevenDayReturn     *float64 `json:"seven_day_return"`
	BuyFactor          float64  `json:"buy_factor"`
	SellThreshold      float64  `json:"sell_threshold"`
	RelativeOffset     float64  `json:"relative_offset"`
	OffsetFactor       float64  `json:"offset_factor"`
	DrawdownFactor     float64  `json:"drawdown_factor"`
	PreVolatility      float64  `json:"pre_volatility_buy_factor"`
	AssetRisk          float64  `json:"asset_risk"`
	BuyFactorTrace     string   `json:"buy_factor_trace"`
	SellThresholdTrace string   `json:"sell_threshold_trace"`
	UpdatedAt          time.Time `json:"updated_at"`
}
