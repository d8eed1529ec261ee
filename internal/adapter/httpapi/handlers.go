package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinfolio/rebalancer/internal/domain"
	"github.com/coinfolio/rebalancer/internal/usecase/portfolio"
)

type entryDTO struct {
	Symbol         string          `json:"symbol"`
	Amount         decimal.Decimal `json:"amount"`
	ValueUsd       decimal.Decimal `json:"valueUsd"`
	TargetValueUsd decimal.Decimal `json:"targetValueUsd"`
	Pct            decimal.Decimal `json:"pct"`
	TargetPct      decimal.Decimal `json:"targetPct"`
}

type portfolioResponse struct {
	TotalValueUsd decimal.Decimal `json:"totalValueUsd"`
	Entries       []entryDTO      `json:"entries"`
}

type tradeDTO struct {
	Symbol       string          `json:"symbol"`
	Units        decimal.Decimal `json:"units"`
	MissingUnits decimal.Decimal `json:"missingUnits"`
	Phony        bool            `json:"phony"`
}

type tradesResponse struct {
	Trades []tradeDTO `json:"trades"`
}

type executeResponse struct {
	Executed []tradeDTO `json:"executed"`
	Skipped  int        `json:"skipped"`
}

type settingsDTO struct {
	BinanceAPIKey                   string              `json:"binanceApiKey"`
	BinanceAPISecret                string              `json:"binanceApiSecret"`
	CoinsInColdStorage              []domain.StoredCoin `json:"coinsInColdStorage"`
	InitialCoins                    []domain.StoredCoin `json:"initialCoins"`
	TargetIndexType                 domain.IndexType    `json:"targetIndexType"`
	TargetIndexMarketCapNumberCoins int                 `json:"targetIndexMarketCapNumberCoins"`
	TargetIndexMarketCapSquared     bool                `json:"targetIndexMarketCapSquared"`
	TargetIndexCustomCoins          []domain.StoredCoin `json:"targetIndexCustomCoins"`
}

type valuationDTO struct {
	ID            string          `json:"id"`
	Date          time.Time       `json:"date"`
	TotalValueUsd decimal.Decimal `json:"totalValueUsd"`
	TotalValueBtc decimal.Decimal `json:"totalValueBtc"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "rebalancer",
	})
}

// handlePortfolio returns the current holdings valued at live prices,
// side by side with the target index.
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	plan, err := s.rebalancer.BuildPlan(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPortfolioResponse(plan.Snapshot))
}

// handleRebalanceTrades computes the trades a rebalance would place,
// without touching the exchange.
func (s *Server) handleRebalanceTrades(w http.ResponseWriter, r *http.Request) {
	plan, err := s.rebalancer.BuildPlan(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tradesResponse{Trades: toTradeDTOs(plan.Trades)})
}

// handleRebalanceExecute computes a fresh plan and places its orders.
func (s *Server) handleRebalanceExecute(w http.ResponseWriter, r *http.Request) {
	plan, err := s.rebalancer.BuildPlan(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}

	executed, err := s.rebalancer.Execute(r.Context(), plan.Trades)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, executeResponse{
		Executed: toTradeDTOs(executed),
		Skipped:  len(plan.Trades) - len(executed),
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settingsRepo.Load(r.Context())
	if errors.Is(err, domain.ErrSettingsNotFound) {
		settings = domain.DefaultSettings()
	} else if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSettingsDTO(settings))
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var dto settingsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid settings payload")
		return
	}

	settings := dto.toDomain()
	if err := settings.Validate(); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.settingsRepo.Save(r.Context(), settings); err != nil {
		s.serviceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toSettingsDTO(settings))
}

func (s *Server) handleValuationLatest(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.valuations.Latest(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toValuationDTO(snapshot))
}

func (s *Server) handleValuationHistory(w http.ResponseWriter, r *http.Request) {
	limit := 30
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	snapshots, err := s.valuations.History(r.Context(), limit)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	dtos := make([]valuationDTO, 0, len(snapshots))
	for _, snapshot := range snapshots {
		dtos = append(dtos, toValuationDTO(snapshot))
	}
	s.writeJSON(w, http.StatusOK, map[string][]valuationDTO{"snapshots": dtos})
}

// handleValuationRecord values the full ledger at current prices and
// appends a snapshot to the history.
func (s *Server) handleValuationRecord(w http.ResponseWriter, r *http.Request) {
	ledger, _, err := s.rebalancer.LoadLedger(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}

	snapshot, err := s.valuations.Record(r.Context(), ledger)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, toValuationDTO(snapshot))
}

// serviceError maps domain errors onto HTTP statuses. Configuration
// problems the user can fix are client errors, everything else is a 500.
func (s *Server) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyTargetAllocations),
		errors.Is(err, domain.ErrZeroWeightSum),
		errors.Is(err, domain.ErrUnknownIndexType),
		errors.Is(err, domain.ErrZeroPortfolioValue),
		errors.Is(err, domain.ErrNonPositivePrice):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.log.Error().Err(err).Msg("request failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}

func toPortfolioResponse(snapshot *portfolio.Snapshot) portfolioResponse {
	entries := make([]entryDTO, 0, len(snapshot.Entries))
	for _, entry := range snapshot.Entries {
		entries = append(entries, entryDTO{
			Symbol:         entry.Symbol,
			Amount:         entry.Amount,
			ValueUsd:       entry.ValueUsd,
			TargetValueUsd: entry.TargetValueUsd,
			Pct:            entry.Pct,
			TargetPct:      entry.TargetPct,
		})
	}
	return portfolioResponse{
		TotalValueUsd: snapshot.TotalValueUsd,
		Entries:       entries,
	}
}

func toTradeDTOs(trades []domain.Trade) []tradeDTO {
	dtos := make([]tradeDTO, 0, len(trades))
	for _, trade := range trades {
		dtos = append(dtos, tradeDTO{
			Symbol:       trade.Symbol,
			Units:        trade.Units,
			MissingUnits: trade.MissingUnits,
			Phony:        trade.IsPhony(),
		})
	}
	return dtos
}

func toSettingsDTO(settings *domain.Settings) settingsDTO {
	return settingsDTO{
		BinanceAPIKey:                   settings.BinanceAPIKey,
		BinanceAPISecret:                settings.BinanceAPISecret,
		CoinsInColdStorage:              settings.CoinsInColdStorage,
		InitialCoins:                    settings.InitialCoins,
		TargetIndexType:                 settings.TargetIndexType,
		TargetIndexMarketCapNumberCoins: settings.TargetIndexMarketCapNumberCoins,
		TargetIndexMarketCapSquared:     settings.TargetIndexMarketCapSquared,
		TargetIndexCustomCoins:          settings.TargetIndexCustomCoins,
	}
}

func (d settingsDTO) toDomain() *domain.Settings {
	return &domain.Settings{
		BinanceAPIKey:                   d.BinanceAPIKey,
		BinanceAPISecret:                d.BinanceAPISecret,
		CoinsInColdStorage:              d.CoinsInColdStorage,
		InitialCoins:                    d.InitialCoins,
		TargetIndexType:                 d.TargetIndexType,
		TargetIndexMarketCapNumberCoins: d.TargetIndexMarketCapNumberCoins,
		TargetIndexMarketCapSquared:     d.TargetIndexMarketCapSquared,
		TargetIndexCustomCoins:          d.TargetIndexCustomCoins,
	}
}

func toValuationDTO(snapshot *domain.ValuationSnapshot) valuationDTO {
	return valuationDTO{
		ID:            snapshot.ID.String(),
		Date:          snapshot.Date,
		TotalValueUsd: snapshot.TotalValueUsd,
		TotalValueBtc: snapshot.TotalValueBtc,
	}
}
