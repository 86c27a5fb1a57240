// Package brain implements the hot-path decision agent: it watches score
// events and order-book updates and emits trade signals the instant a
// totals or moneyline contract is mispriced against the live game state.
package brain

import "github.com/guaranteebettor/tradebot/pkg/types"

// EdgeParams bundles the pricing constants a single edge calculation needs.
// FeeRateBps is the exchange's taker fee expressed in basis points of the
// 100-cent payout (a default of 700 means 7%).
type EdgeParams struct {
	FeeRateBps            int
	MinEdgeCents          int
	MaxSlippageCents      int
	MaxSpendCents         int
	MaxQuantity           int
	MoneylinePriceCapCents int
}

// DefaultEdgeParams mirrors the reference deployment's defaults.
func DefaultEdgeParams() EdgeParams {
	return EdgeParams{
		FeeRateBps:             700,
		MinEdgeCents:           3,
		MaxSlippageCents:       2,
		MaxSpendCents:          2000,
		MaxQuantity:            50,
		MoneylinePriceCapCents: 97,
	}
}

// NetPayoutCents is the post-fee payout of a winning 100-cent contract.
func (p EdgeParams) NetPayoutCents() int {
	return 100 - (100*p.FeeRateBps)/10000
}

// Edge is the expected-value gap between the net payout and the current ask.
func (p EdgeParams) Edge(askCents int) int {
	return p.NetPayoutCents() - askCents
}

// HasEdge reports whether the ask leaves at least MinEdgeCents of edge.
func (p EdgeParams) HasEdge(askCents int) bool {
	return p.Edge(askCents) >= p.MinEdgeCents
}

// MaxTradeablePrice is the highest ask that still clears MinEdgeCents.
func (p EdgeParams) MaxTradeablePrice() int {
	return p.NetPayoutCents() - p.MinEdgeCents
}

// LimitPrice is the price a totals trade signal asks for: the observed ask
// plus an allowance for slippage, capped at the price that still clears the
// minimum edge.
func (p EdgeParams) LimitPrice(askCents int) int {
	slipped := askCents + p.MaxSlippageCents
	ceiling := p.MaxTradeablePrice()
	if slipped < ceiling {
		return slipped
	}
	return ceiling
}

// Quantity sizes a signal's contract count off the configured spend limit,
// clamped to [1, MaxQuantity].
func (p EdgeParams) Quantity(askCents int) int {
	denom := askCents
	if denom < 1 {
		denom = 1
	}
	q := p.MaxSpendCents / denom
	if q < 1 {
		q = 1
	}
	if q > p.MaxQuantity {
		q = p.MaxQuantity
	}
	return q
}

// MoneylineLimitPrice mirrors LimitPrice but caps at the hardcoded moneyline
// price ceiling instead of the totals max-tradeable-price, since moneyline
// signals never chase above a fixed near-certainty ceiling.
func (p EdgeParams) MoneylineLimitPrice(askCents int) int {
	slipped := askCents + p.MaxSlippageCents
	if slipped < p.MoneylinePriceCapCents {
		return slipped
	}
	return p.MoneylinePriceCapCents
}

// MoneylineEdge is the expected-value gap for a moneyline contract given an
// estimated win probability, independent of the totals net payout cap.
func (p EdgeParams) MoneylineEdge(askCents int, winProb float64) float64 {
	payout := 100 * winProb * (1 - float64(p.FeeRateBps)/10000)
	return payout - float64(askCents)
}

// HasMoneylineEdge reports whether a moneyline ask clears the minimum edge
// and the hardcoded moneyline price cap.
func (p EdgeParams) HasMoneylineEdge(askCents int, winProb float64) bool {
	if askCents > p.MoneylinePriceCapCents {
		return false
	}
	return p.MoneylineEdge(askCents, winProb) >= float64(p.MinEdgeCents)
}

// basketballLeadSteps and soccerLeadSteps are the step functions used by
// EstimateWinProb. Leads are checked from the largest threshold down so the
// first satisfied (lead, prob) pair is the tightest applicable bound.
var basketballLeadSteps = []struct {
	lead int
	prob float64
}{
	{20, 0.97},
	{15, 0.93},
	{10, 0.86},
	{7, 0.78},
	{5, 0.68},
}

var soccerLeadSteps = []struct {
	lead int
	prob float64
}{
	{3, 0.97},
	{2, 0.91},
	{1, 0.68},
}

// EstimateWinProb returns a crude win-probability estimate for the leading
// team given the current score lead and period. It is zero before period 2
// (too early in the game for a lead to be meaningful) and zero for leads
// below the smallest configured step.
func EstimateWinProb(sport types.Sport, lead, period int) float64 {
	if period < 2 {
		return 0
	}
	if lead <= 0 {
		return 0
	}
	var steps []struct {
		lead int
		prob float64
	}
	switch sport {
	case types.SportNCAABasketball:
		steps = basketballLeadSteps
	case types.SportPremierLeague, types.SportChampionsLeague:
		steps = soccerLeadSteps
	default:
		return 0
	}
	for _, s := range steps {
		if lead >= s.lead {
			return s.prob
		}
	}
	return 0
}
