package api

import (
	"context"
	"net/http"

	"github.com/hammamikhairi/voicevibe/internal/domain"
)

// UpdateStreak counts today as a practice day and returns the streak.
func (c *Client) UpdateStreak(ctx context.Context) (int, error) {
	var days int
	if err := c.doJSON(ctx, http.MethodPost, "api/gamification/streak", nil, &days); err != nil {
		return 0, err
	}
	return days, nil
}

// AddExperience awards points to the user, tagged with their source.
func (c *Client) AddExperience(ctx context.Context, points int, source string) error {
	return c.doJSON(ctx, http.MethodPost, "api/gamification/experience", experienceRequest{Points: points, Source: source}, nil)
}

// Profile fetches the user's level, XP, and streak.
func (c *Client) Profile(ctx context.Context) (*domain.GamificationProfile, error) {
	var resp profileDTO
	if err := c.doJSON(ctx, http.MethodGet, "users/profile/", nil, &resp); err != nil {
		return nil, err
	}
	return &domain.GamificationProfile{
		Level:      intOr(resp.CurrentLevel, 1),
		XP:         intOr(resp.ExperiencePoint, 0),
		StreakDays: intOr(resp.StreakDays, 0),
		UserEmail:  resp.UserEmail,
		UserName:   resp.UserName,
	}, nil
}
