package curtain

import "context"

// Convenience wrappers around SendCommand for the motions every curtain
// supports. All of them resolve to a single position-command frame; the
// device acknowledges by broadcasting a status frame once it acts.

// OpenCurtain drives a curtain fully open.
func (c *Coordinator) OpenCurtain(ctx context.Context, addr DeviceAddress) error {
	return c.SendCommand(ctx, addr, FuncControl, DataAddrPosition, DataOpen)
}

// CloseCurtain drives a curtain fully closed.
func (c *Coordinator) CloseCurtain(ctx context.Context, addr DeviceAddress) error {
	return c.SendCommand(ctx, addr, FuncControl, DataAddrPosition, DataClose)
}

// StopCurtain halts a curtain mid-travel.
func (c *Coordinator) StopCurtain(ctx context.Context, addr DeviceAddress) error {
	return c.SendCommand(ctx, addr, FuncControl, DataAddrPosition, DataStop)
}

// SetPosition drives a curtain to a percentage, 0 (closed) to 100 (open).
//
// Returns ErrInvalidPosition if position is out of range.
func (c *Coordinator) SetPosition(ctx context.Context, addr DeviceAddress, position int) error {
	frame, err := NewPositionCommand(addr, position)
	if err != nil {
		return err
	}
	return c.SendCommand(ctx, addr, frame.Function, frame.DataAddress, frame.Data)
}

// Probe asks a device to report its current position. The reply arrives
// asynchronously as a status frame; watch GetPosition or a registered
// observer for the result.
func (c *Coordinator) Probe(ctx context.Context, addr DeviceAddress) error {
	return c.SendCommand(ctx, addr, FuncStatus, DataAddrStatus, 0x00)
}
