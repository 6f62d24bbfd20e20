package gpu

import (
	"codeberg.org/mutker/pcmonitor/internal/errors"
)

const milliWattsToWatts = 1000

type powerReading struct {
	drawW  uint32
	limitW uint32
}

// readPower returns board draw and the enforced limit in watts
func readPower(device deviceReader) (powerReading, error) {
	errFactory := errors.New()

	draw, ret := device.GetPowerUsage()
	if !IsNVMLSuccess(ret) {
		return powerReading{}, errFactory.Wrap(ErrPowerReadFailed, newNVMLError(ret)).WithData("usage")
	}

	limit, ret := device.GetPowerManagementLimit()
	if !IsNVMLSuccess(ret) {
		return powerReading{}, errFactory.Wrap(ErrPowerReadFailed, newNVMLError(ret)).WithData("limit")
	}

	return powerReading{
		drawW:  draw / milliWattsToWatts,
		limitW: limit / milliWattsToWatts,
	}, nil
}
