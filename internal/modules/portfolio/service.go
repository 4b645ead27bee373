package portfolio

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/akontos/rebalancer/internal/domain"
)

// Service provides portfolio snapshots and asset management on top of the
// asset and settings repositories.
type Service struct {
	assets   *AssetRepository
	settings *SettingsRepository
	log      zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(assets *AssetRepository, settings *SettingsRepository, log zerolog.Logger) *Service {
	return &Service{
		assets:   assets,
		settings: settings,
		log:      log.With().Str("service", "portfolio").Logger(),
	}
}

// Snapshot loads the full portfolio state in one read
func (s *Service) Snapshot() (domain.Portfolio, error) {
	assets, err := s.assets.GetAll()
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("failed to load assets: %w", err)
	}

	settings, err := s.settings.Get()
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("failed to load settings: %w", err)
	}

	return domain.Portfolio{
		Assets:             assets,
		Cash:               settings.Cash,
		Note:               settings.Note,
		RiskFactor:         settings.RiskFactor,
		BuyWindowPostponed: settings.BuyWindowPostponed,
		BuyWindowLastCheck: settings.BuyWindowLastCheck,
	}, nil
}

// AssetWeight is one row of the allocation summary
type AssetWeight struct {
	AssetID       string          `json:"asset_id"`
	Name          string          `json:"name"`
	MarketValue   decimal.Decimal `json:"market_value"`
	TargetWeight  float64         `json:"target_weight"`
	CurrentWeight float64         `json:"current_weight"`
	Deviation     float64         `json:"deviation"` // current - target
}

// Summary is the allocation overview used by the UI
type Summary struct {
	TotalValue decimal.Decimal `json:"total_value"`
	Cash       decimal.Decimal `json:"cash"`
	RiskFactor *float64        `json:"risk_factor,omitempty"`
	Weights    []AssetWeight   `json:"weights"`
}

// Summarize computes current weights and deviations for all assets
func (s *Service) Summarize() (Summary, error) {
	snapshot, err := s.Snapshot()
	if err != nil {
		return Summary{}, err
	}

	total := snapshot.TotalValue()
	summary := Summary{
		TotalValue: total,
		Cash:       snapshot.Cash,
		RiskFactor: snapshot.RiskFactor,
		Weights:    make([]AssetWeight, 0, len(snapshot.Assets)),
	}

	for _, asset := range snapshot.Assets {
		w := AssetWeight{
			AssetID:      asset.ID,
			Name:         asset.Name,
			MarketValue:  asset.MarketValue(),
			TargetWeight: asset.TargetWeight,
		}
		if total.IsPositive() {
			w.CurrentWeight, _ = w.MarketValue.Div(total).Float64()
			w.Deviation = w.CurrentWeight - w.TargetWeight
		}
		summary.Weights = append(summary.Weights, w)
	}

	return summary, nil
}

// CreateAsset validates and stores a new asset, assigning an id when absent
func (s *Service) CreateAsset(asset domain.Asset) (domain.Asset, error) {
	if err := validateAsset(asset); err != nil {
		return domain.Asset{}, err
	}

	if asset.ID == "" {
		asset.ID = uuid.New().String()
	}
	if asset.LastUpdate.IsZero() {
		asset.LastUpdate = time.Now().UTC()
	}

	if err := s.assets.Create(asset); err != nil {
		return domain.Asset{}, err
	}

	s.log.Info().Str("id", asset.ID).Str("name", asset.Name).Msg("Asset created")
	return asset, nil
}

// UpdateAsset validates and stores edited asset fields
func (s *Service) UpdateAsset(asset domain.Asset) error {
	if err := validateAsset(asset); err != nil {
		return err
	}
	return s.assets.Update(asset)
}

// DeleteAsset removes an asset; owned analysis rows cascade in the schema
func (s *Service) DeleteAsset(id string) error {
	return s.assets.Delete(id)
}

// SetCash updates the cash balance
func (s *Service) SetCash(cash decimal.Decimal) error {
	return s.settings.UpdateCash(cash)
}

// SetNote updates the portfolio note
func (s *Service) SetNote(note string) error {
	return s.settings.UpdateNote(note)
}

func validateAsset(asset domain.Asset) error {
	if asset.Name == "" {
		return fmt.Errorf("asset name is required")
	}
	switch asset.Type {
	case domain.AssetTypeCashFund, domain.AssetTypeOTCFund, domain.AssetTypeExchange:
	default:
		return fmt.Errorf("unknown asset type %q", asset.Type)
	}
	if asset.TargetWeight < 0 || asset.TargetWeight > 1 {
		return fmt.Errorf("target weight must be within [0,1], got %v", asset.TargetWeight)
	}
	if asset.Shares != nil && asset.Shares.IsNegative() {
		return fmt.Errorf("shares cannot be negative")
	}
	if asset.UnitValue != nil && asset.UnitValue.IsNegative() {
		return fmt.Errorf("unit value cannot be negative")
	}
	return nil
}
