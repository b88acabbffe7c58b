package hal

import "time"

// softPwmHighTime is the portion of period the line is held high for duty.
func softPwmHighTime(duty float64, period time.Duration) time.Duration {
	switch {
	case duty <= 0:
		return 0
	case duty >= 1:
		return period
	default:
		return time.Duration(duty * float64(period))
	}
}
