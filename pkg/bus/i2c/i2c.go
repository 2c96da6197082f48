//go:build linux

// Package i2c implements the production bus.Bus adapter on top of the
// Linux i2c-dev character device.
package i2c

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/nxpse050/se050go/pkg/bus"
)

func init() {
	bus.Register("i2c", New)
}

// ioctlSlave is I2C_SLAVE from linux/i2c-dev.h: set the 7-bit slave
// address used by subsequent Read/Write calls on the file descriptor.
const ioctlSlave = 0x0703

// Bus talks to a single I²C slave address through /dev/i2c-N, the same
// low-level ioctl the device exports for every I²C transaction. Unlike
// the CANopen socketcanv3 adapter this is a character device, not a
// socket, so there is no bind/connect handshake: the slave address is
// latched with one ioctl the first time it is used and reused across
// calls as long as the address does not change.
type Bus struct {
	f           *os.File
	lastAddr    uint8
	addrLatched bool
}

// New opens the i2c-dev device at channel (e.g. "/dev/i2c-1").
func New(channel string) (bus.Bus, error) {
	f, err := os.OpenFile(channel, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("i2c: open %s: %w", channel, err)
	}
	return &Bus{f: f}, nil
}

func (b *Bus) setSlave(addr uint8) error {
	if b.addrLatched && b.lastAddr == addr {
		return nil
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, b.f.Fd(), ioctlSlave, uintptr(addr))
	if errno != 0 {
		return fmt.Errorf("i2c: set slave 0x%02x: %w", addr, errno)
	}
	b.lastAddr = addr
	b.addrLatched = true
	return nil
}

// WriteAll implements bus.Bus.
func (b *Bus) WriteAll(addr uint8, data []byte) error {
	if err := b.setSlave(addr); err != nil {
		return err
	}
	n, err := unix.Write(int(b.f.Fd()), data)
	if err != nil {
		log.WithError(err).Warnf("[I2C][TX] write to 0x%02x failed", addr)
		return fmt.Errorf("i2c: write: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("i2c: short write: wrote %d of %d bytes", n, len(data))
	}
	log.Debugf("[I2C][TX] addr=0x%02x % x", addr, data)
	return nil
}

// ReadExact implements bus.Bus.
func (b *Bus) ReadExact(addr uint8, buf []byte) error {
	if err := b.setSlave(addr); err != nil {
		return err
	}
	read := 0
	for read < len(buf) {
		n, err := unix.Read(int(b.f.Fd()), buf[read:])
		if err != nil {
			log.WithError(err).Warnf("[I2C][RX] read from 0x%02x failed", addr)
			return fmt.Errorf("i2c: read: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("i2c: read: unexpected EOF after %d of %d bytes", read, len(buf))
		}
		read += n
	}
	log.Debugf("[I2C][RX] addr=0x%02x % x", addr, buf)
	return nil
}

// DelayMs implements bus.Bus.
func (b *Bus) DelayMs(ms uint32) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// Close releases the underlying file descriptor.
func (b *Bus) Close() error {
	return b.f.Close()
}
