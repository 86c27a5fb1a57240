package brain

import (
	"strings"

	"github.com/guaranteebettor/tradebot/internal/exchange"
	"github.com/guaranteebettor/tradebot/internal/market"
	"github.com/guaranteebettor/tradebot/pkg/types"
)

// SeriesTickers names the series a sport's totals and moneyline markets are
// listed under.
type SeriesTickers struct {
	Totals    string
	Moneyline string
}

// DefaultSeriesTickers returns the reference deployment's per-sport series
// mapping. Sports absent from the map have no registration path; Brain
// treats them the way the original treats an unconfigured series: a failed
// registration.
func DefaultSeriesTickers() map[types.Sport]SeriesTickers {
	return map[types.Sport]SeriesTickers{
		types.SportNCAABasketball: {
			Totals:    "KXNCAAMBTOTAL",
			Moneyline: "KXNCAAMBGAME",
		},
		types.SportPremierLeague: {
			Totals:    "KXEPLTOTAL",
			Moneyline: "KXEPLGAME",
		},
		types.SportChampionsLeague: {
			Totals:    "KXUCLTOTAL",
			Moneyline: "KXUCLGAME",
		},
	}
}

// registrationState is a game's per-kind (totals or moneyline) registration
// progress.
type registrationState int

const (
	stateUnseen registrationState = iota
	statePending
	stateRegistered
	stateFailed
)

// filterMarketsForGame groups today's markets by title (same title == same
// game) and returns the group whose parsed "Away at Home" team names match
// the event's team identifiers via the fuzzy abbreviation matcher.
func filterMarketsForGame(markets []exchange.Market, homeTeam, awayTeam string) []exchange.Market {
	groups := make(map[string][]exchange.Market)
	var order []string
	for _, m := range markets {
		if _, ok := groups[m.Title]; !ok {
			order = append(order, m.Title)
		}
		groups[m.Title] = append(groups[m.Title], m)
	}

	for _, title := range order {
		away, home, ok := market.ParseGameTitle(title)
		if !ok {
			continue
		}
		if market.AbbrevMatchesName(homeTeam, home) && market.AbbrevMatchesName(awayTeam, away) {
			return groups[title]
		}
	}
	return nil
}

// todaysMarkets filters a full market listing down to tickers carrying
// today's date segment (uppercased %y%b%d, e.g. "26FEB19").
func todaysMarkets(markets []exchange.Market, datePrefix string) []exchange.Market {
	marker := "-" + datePrefix
	out := make([]exchange.Market, 0, len(markets))
	for _, m := range markets {
		if strings.Contains(strings.ToUpper(m.Ticker), marker) {
			out = append(out, m)
		}
	}
	return out
}

// pickMoneylineTickers builds moneyline entries from a matched game-market
// group: a single two-sided market yields home=yes/away=no on that one
// ticker; two distinct markets are matched to home/away by title position.
func pickMoneylineTickers(gameMarkets []exchange.Market, homeTeam, awayTeam string) []*market.MoneylineEntry {
	if len(gameMarkets) == 0 {
		return nil
	}
	if len(gameMarkets) == 1 {
		return market.BuildMoneylineEntries(gameMarkets[0].Ticker, "")
	}

	home := strings.ToUpper(homeTeam)
	away := strings.ToUpper(awayTeam)

	var homeTicker, awayTicker string
	for _, m := range gameMarkets[:2] {
		titleUp := strings.ToUpper(m.Title)
		homePos, awayPos := -1, -1
		if len(home) >= 4 {
			homePos = strings.Index(titleUp, home[:4])
		}
		if len(away) >= 4 {
			awayPos = strings.Index(titleUp, away[:4])
		}
		if homePos >= 0 && (awayPos < 0 || homePos < awayPos) {
			homeTicker = m.Ticker
		} else {
			awayTicker = m.Ticker
		}
	}
	if homeTicker == "" || awayTicker == "" {
		return nil
	}
	return []*market.MoneylineEntry{
		{MarketTicker: homeTicker, TeamSide: market.TeamHome, TradeSide: types.SideYes},
		{MarketTicker: awayTicker, TeamSide: market.TeamAway, TradeSide: types.SideYes},
	}
}
