//go:build linux

package buttons

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// EvdevButtons reads key presses from Linux evdev devices under
// /dev/input/event*.
//
// It is best-effort: devices that cannot be opened are skipped.
type EvdevButtons struct {
	// Glob defaults to /dev/input/event*.
	Glob string
	// Keys defaults to DefaultKeyMap.
	Keys map[uint16]Event

	Logger Logger

	ch       chan Event
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	stopOnce sync.Once
}

func NewEvdevButtons() *EvdevButtons {
	return &EvdevButtons{ch: make(chan Event, 8)}
}

// NewKeyboard returns the platform's physical key reader.
func NewKeyboard(logger Logger) Buttons {
	b := NewEvdevButtons()
	b.Logger = logger
	return b
}

func (b *EvdevButtons) Events() <-chan Event { return b.ch }

func (b *EvdevButtons) Start(ctx context.Context) error {
	pattern := b.Glob
	if pattern == "" {
		pattern = "/dev/input/event*"
	}
	keys := b.Keys
	if keys == nil {
		keys = DefaultKeyMap
	}

	paths, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(paths) == 0 {
		b.infof("no evdev devices found under %s", pattern)
		return nil
	}

	// Determine input_event size based on arch timeval size.
	tvSize := int(binary.Size(unix.Timeval{}))

	ctx, b.cancel = context.WithCancel(ctx)
	for _, path := range paths {
		b.wg.Add(1)
		go func(p string) {
			defer b.wg.Done()
			b.readDevice(ctx, p, tvSize, keys)
		}(path)
	}
	b.infof("watching %d evdev devices", len(paths))
	return nil
}

func (b *EvdevButtons) readDevice(ctx context.Context, path string, tvSize int, keys map[uint16]Event) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return
	}
	f := os.NewFile(uintptr(fd), path)
	defer func() {
		_ = f.Close()
	}()

	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pollFds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		_, pollErr := unix.Poll(pollFds, 250)
		if pollErr != nil {
			if pollErr == unix.EINTR {
				continue
			}
			// Device might have gone away.
			return
		}
		if pollFds[0].Revents&unix.POLLIN == 0 {
			continue
		}

		n, readErr := unix.Read(fd, buf)
		if readErr != nil {
			if readErr == unix.EAGAIN || readErr == unix.EINTR {
				continue
			}
			b.errorf("read %s: %v", path, readErr)
			return
		}
		for _, ev := range decodeEvents(buf[:n], tvSize, keys) {
			select {
			case b.ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Stop cancels the readers, waits for them and closes the event channel.
func (b *EvdevButtons) Stop() error {
	b.stopOnce.Do(func() {
		if b.cancel != nil {
			b.cancel()
		}
		b.wg.Wait()
		close(b.ch)
	})
	return nil
}

func (b *EvdevButtons) infof(format string, args ...interface{}) {
	if b.Logger != nil {
		b.Logger.Infof("input", format, args...)
	}
}

func (b *EvdevButtons) errorf(format string, args ...interface{}) {
	if b.Logger != nil {
		b.Logger.Errorf("input", format, args...)
	}
}
