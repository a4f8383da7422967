// Package stats holds read-only reducers over participant and feedback
// records. Nothing here touches storage; callers load the rows and pass them in.
package stats

import (
	"sort"
	"strings"
	"unicode"

	"github.com/iliyamo/fest-registration/internal/model"
)

// EventStats summarizes one event.
type EventStats struct {
	EventID        uint64         `json:"event_id"`
	Total          int            `json:"total_registrations"`
	Attended       int            `json:"attended"`
	AttendanceRate float64        `json:"attendance_rate"`
	FeedbackCount  int            `json:"feedback_count"`
	AverageRating  float64        `json:"average_rating"`
	ByCollege      map[string]int `json:"by_college"`
	ByRound        map[int]int    `json:"by_round"`
	Winners        int            `json:"winners"`
}

// ForEvent reduces the participants and feedback of one event. Rates are 0
// when there is nothing to divide by.
func ForEvent(eventID uint64, participants []model.Participant, feedback []model.Feedback) EventStats {
	s := EventStats{
		EventID:   eventID,
		Total:     len(participants),
		ByCollege: map[string]int{},
		ByRound:   map[int]int{},
	}
	for _, p := range participants {
		if p.Attended {
			s.Attended++
		}
		if p.IsWinner {
			s.Winners++
		}
		s.ByCollege[NormalizeCollege(p.College)]++
		s.ByRound[p.CurrentRound]++
	}
	if s.Total > 0 {
		s.AttendanceRate = float64(s.Attended) / float64(s.Total)
	}

	sum := 0
	for _, f := range feedback {
		if f.Rating < 1 || f.Rating > 5 {
			continue
		}
		sum += f.Rating
		s.FeedbackCount++
	}
	if s.FeedbackCount > 0 {
		s.AverageRating = float64(sum) / float64(s.FeedbackCount)
	}
	return s
}

// NormalizeCollege trims and title-cases a college name so near-duplicate
// spellings group together. Blank names map to "Unknown".
func NormalizeCollege(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "Unknown"
	}
	for i, f := range fields {
		rs := []rune(strings.ToLower(f))
		rs[0] = unicode.ToTitle(rs[0])
		fields[i] = string(rs)
	}
	return strings.Join(fields, " ")
}

// RankPoints is the fixed award per final rank; other ranks score nothing.
func RankPoints(rank int) int {
	switch rank {
	case 1:
		return 10
	case 2:
		return 5
	case 3:
		return 3
	}
	return 0
}

// CollegeScore is one leaderboard row.
type CollegeScore struct {
	College string `json:"college"`
	Points  int    `json:"points"`
	Golds   int    `json:"golds"`
}

// CollegeLeaderboard tallies points per normalized college over winners.
// Participants not flagged as winners, or without a rank, contribute nothing.
// Ties keep the order in which colleges first appeared.
func CollegeLeaderboard(winners []model.Participant) []CollegeScore {
	index := map[string]int{}
	var out []CollegeScore
	for _, p := range winners {
		if !p.IsWinner || p.Rank == nil {
			continue
		}
		name := NormalizeCollege(p.College)
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, CollegeScore{College: name})
		}
		out[i].Points += RankPoints(*p.Rank)
		if *p.Rank == 1 {
			out[i].Golds++
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Points > out[b].Points })
	return out
}
