package service

import (
	"context"
	"fmt"

	"github.com/haeminmoon/grvtgate/internal/config"
	"github.com/haeminmoon/grvtgate/internal/market"
	"github.com/haeminmoon/grvtgate/internal/model"
	"github.com/haeminmoon/grvtgate/internal/pkg/apperrors"
	"github.com/haeminmoon/grvtgate/internal/pkg/metrics"
	"github.com/shopspring/decimal"
)

// RiskEngine runs pre-trade checks on orders before they are signed.
type RiskEngine struct {
	repo        UsageRepo
	instruments market.Provider
	limits      config.RiskConfig
	restricted  map[string]bool
}

func NewRiskEngine(repo UsageRepo, instruments market.Provider, limits config.RiskConfig) *RiskEngine {
	restricted := make(map[string]bool, len(limits.RestrictedInstruments))
	for _, name := range limits.RestrictedInstruments {
		restricted[name] = true
	}
	return &RiskEngine{repo: repo, instruments: instruments, limits: limits, restricted: restricted}
}

func reject(reason, format string, args ...any) error {
	metrics.RiskRejects.WithLabelValues(reason).Inc()
	return apperrors.New(apperrors.ErrRiskRejected, fmt.Sprintf("risk reject: "+format, args...), nil)
}

// CheckOrder returns an error when the order must not be sent.
func (e *RiskEngine) CheckOrder(ctx context.Context, order *model.Order) error {
	notional := decimal.Zero
	for i, leg := range order.Legs {
		if e.restricted[leg.Instrument] {
			return reject("restricted_instrument", "instrument %s is restricted", leg.Instrument)
		}
		inst, ok := e.instruments.Lookup(leg.Instrument)
		if !ok {
			return apperrors.NewValidation("legs[%d]: unknown instrument %q", i, leg.Instrument)
		}

		size, err := decimal.NewFromString(leg.Size)
		if err != nil || !size.IsPositive() {
			return reject("invalid_size", "legs[%d]: size must be positive", i)
		}
		if minSize, err := decimal.NewFromString(inst.MinSize); err == nil && minSize.IsPositive() {
			if size.LessThan(minSize) {
				return reject("min_size", "legs[%d]: size %s below minimum %s", i, leg.Size, inst.MinSize)
			}
			if !size.Mod(minSize).IsZero() {
				return reject("size_step", "legs[%d]: size %s is not a multiple of %s", i, leg.Size, inst.MinSize)
			}
		}

		if leg.LimitPrice == "" {
			if !order.IsMarket {
				return reject("missing_price", "legs[%d]: limit order without price", i)
			}
			// No reference price is available, so an unpriced market leg
			// cannot be held to a notional limit.
			if e.notionalLimited() {
				return reject("unpriced_market_order", "legs[%d]: market order needs a limit price while notional limits are set", i)
			}
			continue
		}
		price, err := decimal.NewFromString(leg.LimitPrice)
		if err != nil || !price.IsPositive() {
			return reject("price_bounds", "legs[%d]: price must be positive", i)
		}
		if tick, err := decimal.NewFromString(inst.TickSize); err == nil && tick.IsPositive() {
			if !price.Mod(tick).IsZero() {
				return reject("tick_size", "legs[%d]: price %s is not a multiple of tick %s", i, leg.LimitPrice, inst.TickSize)
			}
		}
		notional = notional.Add(size.Mul(price))
	}

	orderValue := notional.InexactFloat64()
	if e.limits.MaxOrderNotional > 0 && orderValue > e.limits.MaxOrderNotional {
		return reject("max_notional", "order notional %s exceeds limit %.2f", notional.StringFixed(2), e.limits.MaxOrderNotional)
	}

	if e.repo != nil && (e.limits.MaxDailyNotional > 0 || e.limits.MaxDailyOrders > 0) {
		currentOrders, currentNotional, err := e.repo.GetDailyUsage(ctx, order.SubAccountID)
		if err != nil {
			return apperrors.New(apperrors.ErrInternal, "risk check failed", err)
		}
		if e.limits.MaxDailyNotional > 0 && currentNotional+orderValue > e.limits.MaxDailyNotional {
			return reject("daily_notional_limit", "daily notional limit exceeded (curr: %.2f, new: %.2f, max: %.2f)",
				currentNotional, orderValue, e.limits.MaxDailyNotional)
		}
		if e.limits.MaxDailyOrders > 0 && currentOrders+1 > e.limits.MaxDailyOrders {
			return reject("daily_order_limit", "daily order limit exceeded (curr: %d, max: %d)",
				currentOrders, e.limits.MaxDailyOrders)
		}
	}
	return nil
}

func (e *RiskEngine) notionalLimited() bool {
	return e.limits.MaxOrderNotional > 0 || e.limits.MaxDailyNotional > 0
}

// PostOrderHook records an accepted order against the daily limits.
func (e *RiskEngine) PostOrderHook(ctx context.Context, order *model.Order) {
	if e.repo == nil {
		return
	}
	notional := decimal.Zero
	for _, leg := range order.Legs {
		size, err1 := decimal.NewFromString(leg.Size)
		price, err2 := decimal.NewFromString(leg.LimitPrice)
		if err1 == nil && err2 == nil {
			notional = notional.Add(size.Mul(price))
		}
	}
	_ = e.repo.AddDailyUsage(ctx, order.SubAccountID, 1, notional.InexactFloat64())
}
