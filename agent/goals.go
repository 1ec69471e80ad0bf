package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/agentcore/storage"
	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
)

// DefaultGoalCount 组装状态时读取的目标数
const DefaultGoalCount = 5

// GetGoals 读取房间内的目标，userID 为 nil 时不按用户过滤
func GetGoals(ctx context.Context, store storage.GoalStore, agentID, roomID uuid.UUID, userID *uuid.UUID, onlyInProgress bool, count int) ([]types.Goal, error) {
	if count <= 0 {
		count = DefaultGoalCount
	}
	goals, err := store.GetGoals(ctx, storage.GoalQuery{
		AgentID:        agentID,
		RoomID:         roomID,
		UserID:         userID,
		OnlyInProgress: onlyInProgress,
		Count:          count,
	})
	if err != nil {
		return nil, fmt.Errorf("get goals for room %s: %w", roomID, err)
	}
	return goals, nil
}

// FormatGoalsAsString 每个目标输出名称、id 与子目标勾选列表
func FormatGoalsAsString(goals []types.Goal) string {
	blocks := make([]string, 0, len(goals))
	for _, g := range goals {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Goal: %s\nid: %s\nObjectives:", g.Name, g.ID)
		for _, o := range g.Objectives {
			mark, status := "[ ]", "IN PROGRESS"
			if o.Completed {
				mark, status = "[x]", "DONE"
			}
			fmt.Fprintf(&sb, "\n- %s %s (%s)", mark, o.Description, status)
		}
		blocks = append(blocks, sb.String())
	}
	return strings.Join(blocks, "\n")
}

// CreateGoal 创建目标，状态为空时默认 IN_PROGRESS
func CreateGoal(ctx context.Context, store storage.GoalStore, goal types.Goal) (types.Goal, error) {
	if strings.TrimSpace(goal.Name) == "" {
		return goal, types.NewError(types.ErrInvalidInput, "goal name is required")
	}
	if goal.RoomID == uuid.Nil {
		return goal, types.NewError(types.ErrInvalidInput, "goal room is required")
	}
	if goal.Status == "" {
		goal.Status = types.GoalInProgress
	}
	if !goal.Status.Valid() {
		return goal, types.Errorf(types.ErrInvalidInput, "invalid goal status %q", goal.Status)
	}
	if goal.ID == uuid.Nil {
		goal.ID = uuid.New()
	}
	if err := store.CreateGoal(ctx, goal); err != nil {
		return goal, fmt.Errorf("create goal %s: %w", goal.ID, err)
	}
	return goal, nil
}

// UpdateGoal 更新目标。已处于 DONE / FAILED 的目标不可再修改，返回 ErrGoalImmutable。
func UpdateGoal(ctx context.Context, store storage.GoalStore, goal types.Goal) error {
	if !goal.Status.Valid() {
		return types.Errorf(types.ErrInvalidInput, "invalid goal status %q", goal.Status)
	}
	goals, err := store.GetGoals(ctx, storage.GoalQuery{RoomID: goal.RoomID})
	if err != nil {
		return fmt.Errorf("get goals for room %s: %w", goal.RoomID, err)
	}
	var current *types.Goal
	for i := range goals {
		if goals[i].ID == goal.ID {
			current = &goals[i]
			break
		}
	}
	if current == nil {
		return types.Errorf(types.ErrNotFound, "goal %s not found in room %s", goal.ID, goal.RoomID)
	}
	if !current.Mutable() {
		return types.Errorf(types.ErrGoalImmutable, "goal %s is %s", goal.ID, current.Status)
	}
	if err := store.UpdateGoal(ctx, goal); err != nil {
		return fmt.Errorf("update goal %s: %w", goal.ID, err)
	}
	return nil
}
