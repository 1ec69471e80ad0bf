package agent

import (
	"context"
	"fmt"
	"slices"

	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 以下 Ensure* 操作都是幂等的 upsert，可以在每轮对话前调用。

// EnsureUserExists 账户不存在时创建。username / name 为空时使用 "User<id>"。
func (rt *Runtime) EnsureUserExists(ctx context.Context, userID uuid.UUID, username, name, email string) error {
	account, err := rt.store.GetAccountByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get account %s: %w", userID, err)
	}
	if account != nil {
		return nil
	}
	fallback := "User" + userID.String()
	if username == "" {
		username = fallback
	}
	if name == "" {
		name = fallback
	}
	created, err := rt.store.CreateAccount(ctx, types.Account{
		ID:       userID,
		Name:     name,
		Username: username,
		Email:    email,
		Details:  map[string]any{"summary": ""},
	})
	if err != nil {
		return fmt.Errorf("create account %s: %w", userID, err)
	}
	if created {
		rt.logger.Debug("account created", zap.String("user_id", userID.String()), zap.String("username", username))
	}
	return nil
}

// EnsureParticipantExists 账户没有加入任何房间时把它加入 roomID
func (rt *Runtime) EnsureParticipantExists(ctx context.Context, userID, roomID uuid.UUID) error {
	participants, err := rt.store.GetParticipantsForAccount(ctx, userID)
	if err != nil {
		return fmt.Errorf("get participants for %s: %w", userID, err)
	}
	if len(participants) > 0 {
		return nil
	}
	if _, err := rt.store.AddParticipant(ctx, userID, roomID); err != nil {
		return fmt.Errorf("add participant %s to %s: %w", userID, roomID, err)
	}
	return nil
}

// EnsureParticipantInRoom 用户不在房间中时加入
func (rt *Runtime) EnsureParticipantInRoom(ctx context.Context, userID, roomID uuid.UUID) error {
	participants, err := rt.store.GetParticipantsForRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("get participants of room %s: %w", roomID, err)
	}
	if slices.Contains(participants, userID) {
		return nil
	}
	if _, err := rt.store.AddParticipant(ctx, userID, roomID); err != nil {
		return fmt.Errorf("add participant %s to %s: %w", userID, roomID, err)
	}
	if userID == rt.agentID {
		rt.logger.Debug("agent linked to room", zap.String("room_id", roomID.String()))
	} else {
		rt.logger.Debug("user linked to room", zap.String("user_id", userID.String()), zap.String("room_id", roomID.String()))
	}
	return nil
}

// EnsureRoomExists 房间不存在时创建
func (rt *Runtime) EnsureRoomExists(ctx context.Context, roomID uuid.UUID) error {
	existing, err := rt.store.GetRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("get room %s: %w", roomID, err)
	}
	if existing != uuid.Nil {
		return nil
	}
	if _, err := rt.store.CreateRoom(ctx, roomID); err != nil {
		return fmt.Errorf("create room %s: %w", roomID, err)
	}
	rt.logger.Debug("room created", zap.String("room_id", roomID.String()))
	return nil
}

// EnsureConnection 确保 agent 与用户账户、房间以及双方的成员关系都存在
func (rt *Runtime) EnsureConnection(ctx context.Context, userID, roomID uuid.UUID, username, name string) error {
	agentUsername := rt.character.Username
	if agentUsername == "" {
		agentUsername = "Agent"
	}
	agentName := rt.character.Name
	if agentName == "" {
		agentName = "Agent"
	}
	if err := rt.EnsureUserExists(ctx, rt.agentID, agentUsername, agentName, rt.character.Email); err != nil {
		return err
	}
	if userID != rt.agentID {
		if err := rt.EnsureUserExists(ctx, userID, username, name, ""); err != nil {
			return err
		}
	}
	if err := rt.EnsureRoomExists(ctx, roomID); err != nil {
		return err
	}
	if err := rt.EnsureParticipantInRoom(ctx, userID, roomID); err != nil {
		return err
	}
	return rt.EnsureParticipantInRoom(ctx, rt.agentID, roomID)
}
