package sportsfeed

import (
	"fmt"

	"github.com/guaranteebettor/tradebot/pkg/types"
)

// --- ESPN scoreboard schema ---

type espnScoreboard struct {
	Events []espnEvent `json:"events"`
}

type espnEvent struct {
	ID           string            `json:"id"`
	Status       espnStatus        `json:"status"`
	Competitions []espnCompetition `json:"competitions"`
}

type espnStatus struct {
	Period       int            `json:"period"`
	DisplayClock string         `json:"displayClock"`
	Type         espnStatusType `json:"type"`
}

type espnStatusType struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

type espnCompetition struct {
	Competitors []espnCompetitor `json:"competitors"`
}

type espnCompetitor struct {
	HomeAway string   `json:"homeAway"`
	Team     espnTeam `json:"team"`
	Score    string   `json:"score"`
}

type espnTeam struct {
	DisplayName  string `json:"displayName"`
	Abbreviation string `json:"abbreviation"`
}

var espnLiveStatuses = map[string]bool{
	"STATUS_IN_PROGRESS": true,
	"STATUS_HALFTIME":    true,
	"STATUS_END_PERIOD":  true,
	"STATUS_DELAYED":     true,
}

var espnFinalStatuses = map[string]bool{
	"STATUS_FINAL":     true,
	"STATUS_FULL_TIME": true,
}

// normalizeESPN converts one ESPN scoreboard event into a ScoreEvent.
// Returns false for any status outside the closed live/final sets.
func normalizeESPN(sport types.Sport, evt espnEvent, receivedAtNs int64) (types.ScoreEvent, bool) {
	statusName := evt.Status.Type.Name
	isFinal := espnFinalStatuses[statusName]
	if !isFinal && !espnLiveStatuses[statusName] {
		return types.ScoreEvent{}, false
	}
	if len(evt.Competitions) == 0 {
		return types.ScoreEvent{}, false
	}
	var home, away espnCompetitor
	var haveHome, haveAway bool
	for _, c := range evt.Competitions[0].Competitors {
		switch c.HomeAway {
		case "home":
			home, haveHome = c, true
		case "away":
			away, haveAway = c, true
		}
	}
	if !haveHome || !haveAway {
		return types.ScoreEvent{}, false
	}

	homeScore := parseIntOrZero(home.Score)
	awayScore := parseIntOrZero(away.Score)

	return types.ScoreEvent{
		EventID:      fmt.Sprintf("%s-%d-%d", evt.ID, homeScore, awayScore),
		Sport:        sport,
		GameID:       evt.ID,
		HomeTeam:     home.Team.DisplayName,
		AwayTeam:     away.Team.DisplayName,
		HomeScore:    homeScore,
		AwayScore:    awayScore,
		TotalScore:   homeScore + awayScore,
		GameClock:    evt.Status.DisplayClock,
		Period:       evt.Status.Period,
		IsFinal:      isFinal,
		ReceivedAtNs: receivedAtNs,
		Provider:     "espn",
	}, true
}

// --- SportsData.io schema ---

type sportsDataGame struct {
	GameID               string `json:"GameID"`
	Status               string `json:"Status"`
	HomeTeam             string `json:"HomeTeam"`
	AwayTeam             string `json:"AwayTeam"`
	HomeTeamScore        int    `json:"HomeTeamScore"`
	AwayTeamScore        int    `json:"AwayTeamScore"`
	Period               string `json:"Period"`
	TimeRemainingMinutes *int   `json:"TimeRemainingMinutes"`
	TimeRemainingSeconds *int   `json:"TimeRemainingSeconds"`
	Quarter              *int   `json:"Quarter"`
	Clock                string `json:"Clock"`
	Elapsed              *int   `json:"Elapsed"`
}

var sportsDataLiveStatusesNCAA = map[string]bool{
	"InProgress": true,
	"Halftime":   true,
	"Delayed":    true,
}

var sportsDataFinalStatusesNCAA = map[string]bool{
	"Final":    true,
	"F/OT":     true,
}

var sportsDataLiveStatusesSoccer = map[string]bool{
	"InProgress": true,
	"Halftime":   true,
}

var sportsDataFinalStatusesSoccer = map[string]bool{
	"Final": true,
}

// normalizeSportsDataNCAA converts an NCAA basketball game into a ScoreEvent.
func normalizeSportsDataNCAA(g sportsDataGame, receivedAtNs int64) (types.ScoreEvent, bool) {
	isFinal := sportsDataFinalStatusesNCAA[g.Status]
	if !isFinal && !sportsDataLiveStatusesNCAA[g.Status] {
		return types.ScoreEvent{}, false
	}

	period := 0
	if g.Quarter != nil {
		period = *g.Quarter
	}
	clock := g.Clock
	if clock == "" && g.TimeRemainingMinutes != nil && g.TimeRemainingSeconds != nil {
		clock = fmt.Sprintf("%d:%02d", *g.TimeRemainingMinutes, *g.TimeRemainingSeconds)
	}

	return types.ScoreEvent{
		EventID:      fmt.Sprintf("%s-%d-%d", g.GameID, g.HomeTeamScore, g.AwayTeamScore),
		Sport:        types.SportNCAABasketball,
		GameID:       g.GameID,
		HomeTeam:     g.HomeTeam,
		AwayTeam:     g.AwayTeam,
		HomeScore:    g.HomeTeamScore,
		AwayScore:    g.AwayTeamScore,
		TotalScore:   g.HomeTeamScore + g.AwayTeamScore,
		GameClock:    clock,
		Period:       period,
		IsFinal:      isFinal,
		ReceivedAtNs: receivedAtNs,
		Provider:     "sportsdata_io",
	}, true
}

// normalizeSportsDataSoccer converts a soccer game into a ScoreEvent. Soccer
// has no discrete quarters: period 1 before halftime, 2 after.
func normalizeSportsDataSoccer(g sportsDataGame, sport types.Sport, receivedAtNs int64) (types.ScoreEvent, bool) {
	isFinal := sportsDataFinalStatusesSoccer[g.Status]
	if !isFinal && !sportsDataLiveStatusesSoccer[g.Status] {
		return types.ScoreEvent{}, false
	}

	period := 1
	clock := g.Clock
	if g.Status == "Halftime" {
		clock = "HT"
		period = 1
	} else if g.Elapsed != nil {
		clock = fmt.Sprintf("%d'", *g.Elapsed)
		if *g.Elapsed >= 45 {
			period = 2
		}
	}

	return types.ScoreEvent{
		EventID:      fmt.Sprintf("%s-%d-%d", g.GameID, g.HomeTeamScore, g.AwayTeamScore),
		Sport:        sport,
		GameID:       g.GameID,
		HomeTeam:     g.HomeTeam,
		AwayTeam:     g.AwayTeam,
		HomeScore:    g.HomeTeamScore,
		AwayScore:    g.AwayTeamScore,
		TotalScore:   g.HomeTeamScore + g.AwayTeamScore,
		GameClock:    clock,
		Period:       period,
		IsFinal:      isFinal,
		ReceivedAtNs: receivedAtNs,
		Provider:     "sportsdata_io",
	}, true
}

func parseIntOrZero(s string) int {
	n := 0
	neg := false
	for i, r := range s {
		if i == 0 && r == '-' {
			neg = true
			continue
		}
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	if neg {
		n = -n
	}
	return n
}
