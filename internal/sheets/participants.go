package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/logger"

	"github.com/iliyamo/fest-registration/internal/model"
)

var header = []interface{}{
	"ID", "Name", "Email", "Phone", "College", "Team", "Members",
	"Round", "Attended", "Rank", "Registered At",
}

// Rows renders the header plus one row per participant. Custom field
// answers follow in the order the event declares them.
func Rows(ev model.Event, ps []model.Participant) [][]interface{} {
	head := append([]interface{}{}, header...)
	for _, f := range ev.CustomFields {
		head = append(head, f)
	}
	out := make([][]interface{}, 0, len(ps)+1)
	out = append(out, head)
	for _, p := range ps {
		rank := ""
		if p.Rank != nil {
			rank = fmt.Sprint(*p.Rank)
		}
		row := []interface{}{
			p.ID, p.Name, p.Email, p.Phone, p.College, p.TeamName,
			strings.Join(p.TeamMembers, ", "),
			p.CurrentRound, yesNo(p.Attended), rank,
			p.RegisteredAt.UTC().Format(time.RFC3339),
		}
		for _, f := range ev.CustomFields {
			row = append(row, p.Responses[f])
		}
		out = append(out, row)
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// TabName is "<id> <title>", stripped of characters the A1 notation
// reserves and cut to the 100 characters a tab title may hold.
func TabName(ev model.Event) string {
	title := strings.Map(func(r rune) rune {
		switch r {
		case '\'', '!', '[', ']', '*', '?', ':', '/', '\\':
			return -1
		}
		return r
	}, ev.Title)
	name := strings.TrimSpace(fmt.Sprintf("%d %s", ev.ID, title))
	if r := []rune(name); len(r) > 100 {
		name = string(r[:100])
	}
	return name
}

func quote(tab string) string {
	return "'" + tab + "'"
}

// ExportEvent writes the participant list of ev to its own tab, replacing
// what was there.
func (c *Client) ExportEvent(ctx context.Context, ev model.Event, ps []model.Participant) (string, error) {
	tab := TabName(ev)
	if err := c.ensureTab(ctx, tab); err != nil {
		return "", err
	}
	if err := c.replace(ctx, tab, Rows(ev, ps)); err != nil {
		return "", err
	}
	logger.Infof("sheets: exported %d participants of event %d to %q", len(ps), ev.ID, tab)
	return tab, nil
}
