package room

// Status 房间状态，只能向前推进
type Status int

const (
	StatusWaiting Status = iota
	StatusInProgress
	StatusCompleted
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal 是否为终止状态
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition 检查状态转换是否合法
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusWaiting:
		return to == StatusInProgress || to == StatusCancelled
	case StatusInProgress:
		return to == StatusCompleted
	default:
		return false
	}
}
