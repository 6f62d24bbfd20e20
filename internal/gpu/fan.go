package gpu

import (
	"codeberg.org/mutker/pcmonitor/internal/errors"
)

// readFanSpeeds returns the current speed of every fan as a percentage
// of its maximum. A board without controllable fans reports none.
func readFanSpeeds(device deviceReader) ([]uint32, error) {
	errFactory := errors.New()

	count, ret := device.GetNumFans()
	if !IsNVMLSuccess(ret) {
		return nil, errFactory.Wrap(ErrFanCountFailed, newNVMLError(ret))
	}

	speeds := make([]uint32, 0, count)
	for i := 0; i < count; i++ {
		speed, ret := device.GetFanSpeed_v2(i)
		if !IsNVMLSuccess(ret) {
			return nil, errFactory.Wrap(ErrGetFanSpeedFailed, newNVMLError(ret)).WithData(i)
		}
		speeds = append(speeds, speed)
	}

	return speeds, nil
}
