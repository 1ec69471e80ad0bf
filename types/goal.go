package types

import "github.com/google/uuid"

// GoalStatus 目标状态
type GoalStatus string

const (
	GoalDone       GoalStatus = "DONE"
	GoalFailed     GoalStatus = "FAILED"
	GoalInProgress GoalStatus = "IN_PROGRESS"
)

// Valid 判断状态是否合法
func (s GoalStatus) Valid() bool {
	switch s {
	case GoalDone, GoalFailed, GoalInProgress:
		return true
	default:
		return false
	}
}

// Terminal 是否为终态（DONE / FAILED）
func (s GoalStatus) Terminal() bool {
	return s == GoalDone || s == GoalFailed
}

// Objective 目标下的子目标
type Objective struct {
	ID          string `json:"id,omitempty"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// Goal 可跟踪的多步目标
type Goal struct {
	ID         uuid.UUID   `json:"id"`
	RoomID     uuid.UUID   `json:"roomId"`
	UserID     uuid.UUID   `json:"userId"`
	Name       string      `json:"name"`
	Status     GoalStatus  `json:"status"`
	Objectives []Objective `json:"objectives"`
}

// Mutable 只有进行中的目标允许修改
func (g *Goal) Mutable() bool {
	return g.Status == GoalInProgress
}
