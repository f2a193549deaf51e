package ideas

import (
	"context"
	"errors"

	"ideaflow/api/internal/apperr"
	"ideaflow/api/internal/rbac"
	"ideaflow/api/internal/store"
)

type UserStatistics struct {
	TotalIdeas    int            `json:"totalIdeas"`
	TotalLikes    int            `json:"totalLikes"`
	TotalDislikes int            `json:"totalDislikes"`
	TotalComments int            `json:"totalComments"`
	AverageRating int            `json:"averageRating"`
	IdeasByTopic  map[string]int `json:"ideasByTopic"`
}

// UserStatistics aggregates the ideas authored by userID. Users may read
// their own numbers; anyone else's require an admin. AverageRating is the
// net likes-minus-dislikes total, kept under its historical name.
func (s *Service) UserStatistics(ctx context.Context, actor rbac.Actor, userID string) (UserStatistics, error) {
	if actor.Owns(userID) {
		if err := rbac.Require(actor, rbac.ActionReadOwnStats); err != nil {
			return UserStatistics{}, err
		}
	} else {
		if err := rbac.Require(actor, rbac.ActionReadUserStats); err != nil {
			return UserStatistics{}, err
		}
		if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return UserStatistics{}, apperr.NotFound("User not found")
			}
			return UserStatistics{}, err
		}
	}

	ideas, err := s.repo.ListIdeasByAuthor(ctx, userID)
	if err != nil {
		return UserStatistics{}, err
	}
	stats := UserStatistics{IdeasByTopic: map[string]int{}}
	for _, idea := range ideas {
		stats.TotalIdeas++
		stats.TotalLikes += idea.Likes
		stats.TotalDislikes += idea.Dislikes
		stats.TotalComments += idea.CommentCount
		stats.IdeasByTopic[idea.TopicTitle]++
	}
	stats.AverageRating = stats.TotalLikes - stats.TotalDislikes
	return stats, nil
}
