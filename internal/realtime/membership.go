package realtime

import (
	"context"
	"errors"

	"github.com/mauv0809/pickup/internal/community"
	"github.com/mauv0809/pickup/internal/match"
)

// StoreMembership answers membership questions from the match and community stores.
type StoreMembership struct {
	Matches     match.MatchStore
	Communities community.CommunityStore
}

var _ MembershipChecker = StoreMembership{}

func (s StoreMembership) IsMember(ctx context.Context, kind RoomKind, entityID, userID string) (bool, error) {
	var (
		ok  bool
		err error
	)
	switch kind {
	case KindMatch:
		ok, err = s.Matches.IsParticipant(ctx, entityID, userID)
		if errors.Is(err, match.ErrNotFound) {
			return false, ErrRoomNotFound
		}
	case KindCommunity:
		ok, err = s.Communities.IsMember(ctx, entityID, userID)
		if errors.Is(err, community.ErrNotFound) {
			return false, ErrRoomNotFound
		}
	default:
		return false, ErrInvalid
	}
	return ok, err
}
