package community

import "context"

// CommunityStore defines the persistence operations for communities and their members.
type CommunityStore interface {
	Create(ctx context.Context, c Community) (*Community, error)
	Get(ctx context.Context, id string) (*Community, error)
	List(ctx context.Context, search string) ([]Community, error)
	GetByInviteCode(ctx context.Context, code string) (*Community, error)
	AddMember(ctx context.Context, communityID, userID string) (alreadyMember bool, err error)
	IsMember(ctx context.Context, communityID, userID string) (bool, error)
}
