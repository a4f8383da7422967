package certificate

import (
	"context"

	"github.com/iliyamo/fest-registration/internal/model"
)

// ItemResult is the outcome for one participant.
type ItemResult struct {
	ParticipantID uint64 `json:"participant_id"`
	Template      string `json:"template"`
	Path          string `json:"path,omitempty"`
	Error         string `json:"error,omitempty"`
}

// BatchResult lists every item in input order.
type BatchResult struct {
	Items     []ItemResult `json:"items"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
}

// GenerateFunc renders and stores one certificate, returning its storage key.
type GenerateFunc func(ctx context.Context, p model.Participant) (string, error)

// Batch calls gen for each participant. A failure is recorded against that
// participant and the loop moves on. A cancelled context marks the remaining
// items as failed without calling gen.
func Batch(ctx context.Context, participants []model.Participant, gen GenerateFunc) BatchResult {
	res := BatchResult{Items: make([]ItemResult, 0, len(participants))}
	for _, p := range participants {
		item := ItemResult{ParticipantID: p.ID, Template: string(TemplateFor(p))}
		if err := ctx.Err(); err != nil {
			item.Error = err.Error()
		} else if path, err := gen(ctx, p); err != nil {
			item.Error = err.Error()
		} else {
			item.Path = path
		}
		if item.Error == "" {
			res.Succeeded++
		} else {
			res.Failed++
		}
		res.Items = append(res.Items, item)
	}
	return res
}
