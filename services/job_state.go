package services

type JobState int32

const (
	JobPending JobState = iota
	JobFired
	JobCancelled
)

func (s JobState) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobFired:
		return "fired"
	case JobCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

type transition struct {
	From JobState
	To   JobState
}

var validTransitions = []transition{
	{From: JobPending, To: JobFired},
	{From: JobPending, To: JobCancelled},
}

func IsValidTransition(from, to JobState) bool {
	for _, t := range validTransitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}
