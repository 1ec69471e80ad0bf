package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/agentcore/storage"
	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
)

// CreateRelationship 为无序用户对创建关系，已存在时返回 false
func CreateRelationship(ctx context.Context, store storage.RelationshipStore, userA, userB uuid.UUID) (bool, error) {
	if userA == uuid.Nil || userB == uuid.Nil {
		return false, types.NewError(types.ErrInvalidInput, "relationship requires two users")
	}
	if userA == userB {
		return false, types.NewError(types.ErrInvalidInput, "relationship requires distinct users")
	}
	created, err := store.CreateRelationship(ctx, userA, userB)
	if err != nil {
		return false, fmt.Errorf("create relationship %s-%s: %w", userA, userB, err)
	}
	return created, nil
}

// GetRelationship 未找到时返回 nil, nil
func GetRelationship(ctx context.Context, store storage.RelationshipStore, userA, userB uuid.UUID) (*types.Relationship, error) {
	r, err := store.GetRelationship(ctx, userA, userB)
	if err != nil {
		return nil, fmt.Errorf("get relationship %s-%s: %w", userA, userB, err)
	}
	return r, nil
}

func GetRelationships(ctx context.Context, store storage.RelationshipStore, userID uuid.UUID) ([]types.Relationship, error) {
	rs, err := store.GetRelationships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get relationships for %s: %w", userID, err)
	}
	return rs, nil
}

// FormatRelationships 列出与 userID 有关系的另一方 id，每行一个
func FormatRelationships(ctx context.Context, store storage.RelationshipStore, userID uuid.UUID) (string, error) {
	rs, err := GetRelationships(ctx, store, userID)
	if err != nil {
		return "", err
	}
	others := make([]string, 0, len(rs))
	for _, r := range rs {
		other := r.UserA
		if r.UserA == userID {
			other = r.UserB
		}
		others = append(others, other.String())
	}
	return strings.Join(others, "\n"), nil
}
