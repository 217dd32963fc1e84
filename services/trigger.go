package services

import "time"

// ComputeTriggerTime returns shiftStart - leadTime. Times in the past are returned as-is.
func ComputeTriggerTime(shiftStart time.Time, leadTime time.Duration) time.Time {
	return shiftStart.Add(-leadTime)
}
