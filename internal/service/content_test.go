package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fest-registration/internal/apperr"
	"github.com/iliyamo/fest-registration/internal/model"
)

func TestFeedbackAndEventStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev, coord := f.event(t, model.Event{})
	a := f.register(t, ev.ID, "A", "a@college.edu")
	f.register(t, ev.ID, "B", "b@college.edu")
	_, err := f.checkin.Checkin(ctx, coord, a.CheckinToken)
	require.NoError(t, err)

	_, err = f.content.SubmitFeedback(ctx, model.Feedback{EventID: &ev.ID, Name: "A", Email: "a@college.edu", Message: "Great", Rating: 6})
	assert.True(t, apperr.HasReason(err, apperr.InvalidRating))
	for _, r := range []int{4, 5} {
		_, err := f.content.SubmitFeedback(ctx, model.Feedback{EventID: &ev.ID, Name: "A", Email: "a@college.edu", Message: "Great", Rating: r})
		require.NoError(t, err)
	}

	st, err := f.stats.EventStats(ctx, coord, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.Attended)
	assert.InDelta(t, 0.5, st.AttendanceRate, 1e-9)
	assert.InDelta(t, 4.5, st.AverageRating, 1e-9)
	assert.Equal(t, 2, st.FeedbackCount)

	_, err = f.content.ListFeedback(ctx, coord, nil)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	fb, err := f.content.ListFeedback(ctx, coord, &ev.ID)
	require.NoError(t, err)
	assert.Len(t, fb, 2)
}

func TestCollegeLeaderboardUsesPublishedResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, coordA := f.event(t, model.Event{Title: "A"})
	b, coordB := f.event(t, model.Event{Title: "B"})
	pa, err := f.reg.Register(ctx, Actor{}, a.ID, submission("X", "x@c.edu", "north college"))
	require.NoError(t, err)
	pb, err := f.reg.Register(ctx, Actor{}, b.ID, submission("Y", "y@c.edu", "South College"))
	require.NoError(t, err)
	_, err = f.progress.AssignRank(ctx, coordA, pa.ID, 1)
	require.NoError(t, err)
	_, err = f.progress.AssignRank(ctx, coordB, pb.ID, 2)
	require.NoError(t, err)

	board, err := f.stats.CollegeLeaderboard(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, board)

	_, err = f.progress.PublishResults(ctx, coordA, a.ID)
	require.NoError(t, err)
	_, err = f.progress.PublishResults(ctx, coordB, b.ID)
	require.NoError(t, err)
	board, err = f.stats.CollegeLeaderboard(ctx, nil)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "North College", board[0].College)
	assert.Equal(t, 10, board[0].Points)
	assert.Equal(t, 5, board[1].Points)
}

func TestScheduleGalleryTeam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fest, err := f.catalog.CreateFest(ctx, f.admin, model.Fest{Name: "TechNova", Year: 2026, IsActive: true})
	require.NoError(t, err)

	later, earlier := f.now.Add(2*time.Hour), f.now.Add(time.Hour)
	_, err = f.content.AddSchedule(ctx, f.admin, model.Schedule{FestID: fest.ID, Title: "Closing", StartsAt: later})
	require.NoError(t, err)
	_, err = f.content.AddSchedule(ctx, f.admin, model.Schedule{FestID: fest.ID, Title: "Opening", StartsAt: earlier})
	require.NoError(t, err)
	agenda, err := f.content.FestSchedule(ctx, fest.ID)
	require.NoError(t, err)
	require.Len(t, agenda, 2)
	assert.Equal(t, "Opening", agenda[0].Title)

	photo, err := f.content.UploadPhoto(ctx, f.admin, model.GalleryItem{FestID: &fest.ID, Title: "Crowd"}, pngBytes)
	require.NoError(t, err)
	assert.True(t, f.files.Has(photo.ImagePath))
	require.NoError(t, f.content.DeletePhoto(ctx, f.admin, photo.ID))
	assert.False(t, f.files.Has(photo.ImagePath))

	_, coord := f.event(t, model.Event{})
	_, err = f.content.AddTeamMember(ctx, coord, model.TeamMember{Name: "Zed"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.content.AddTeamMember(ctx, f.admin, model.TeamMember{Name: "Zed", Position: "Lead", SortOrder: 2})
	require.NoError(t, err)
	_, err = f.content.AddTeamMember(ctx, f.admin, model.TeamMember{Name: "Amy", Position: "Design", SortOrder: 1})
	require.NoError(t, err)
	team, err := f.content.TeamMembers(ctx)
	require.NoError(t, err)
	require.Len(t, team, 2)
	assert.Equal(t, "Amy", team[0].Name)
}
