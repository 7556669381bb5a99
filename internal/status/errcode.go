// internal/status/errcode.go
package status

import (
	"errors"

	burrow "github.com/goburrow/modbus"
	vetter "github.com/simonvetter/modbus"
)

// ErrorCode extracts a best-effort Modbus exception code from an error.
// If the error does not expose a code, returns 1 (generic error).
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	var me *burrow.ModbusError
	if errors.As(err, &me) {
		return uint16(me.ExceptionCode)
	}

	for code, sentinel := range vetterCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return 1
}

var vetterCodes = map[uint16]error{
	uint16(burrow.ExceptionCodeIllegalFunction):                    vetter.ErrIllegalFunction,
	uint16(burrow.ExceptionCodeIllegalDataAddress):                 vetter.ErrIllegalDataAddress,
	uint16(burrow.ExceptionCodeIllegalDataValue):                   vetter.ErrIllegalDataValue,
	uint16(burrow.ExceptionCodeServerDeviceFailure):                vetter.ErrServerDeviceFailure,
	uint16(burrow.ExceptionCodeAcknowledge):                        vetter.ErrAcknowledge,
	uint16(burrow.ExceptionCodeServerDeviceBusy):                   vetter.ErrServerDeviceBusy,
	uint16(burrow.ExceptionCodeMemoryParityError):                  vetter.ErrMemoryParityError,
	uint16(burrow.ExceptionCodeGatewayPathUnavailable):             vetter.ErrGWPathUnavailable,
	uint16(burrow.ExceptionCodeGatewayTargetDeviceFailedToRespond): vetter.ErrGWTargetFailedToRespond,
}
