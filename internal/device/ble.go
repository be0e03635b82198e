package device

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"tinygo.org/x/bluetooth"

	"github.com/sadopc/hydrate/internal/reminder"
)

// HM-10 / HC-05 style UART bridge.
const (
	DefaultServiceUUID        = "0000ffe0-0000-1000-8000-00805f9b34fb"
	DefaultCharacteristicUUID = "0000ffe1-0000-1000-8000-00805f9b34fb"
)

// BLEConfig selects the peripheral and the characteristic commands are written to.
type BLEConfig struct {
	Name               string // advertised local name; empty matches any device with the service
	ServiceUUID        string
	CharacteristicUUID string
}

// BLE writes commands to the bottle's UART characteristic. Send fails with
// reminder.ErrTransportUnavailable until Connect succeeds.
type BLE struct {
	adapter *bluetooth.Adapter
	name    string
	service bluetooth.UUID
	char    bluetooth.UUID
	status  reminder.StatusSink
	logger  zerolog.Logger

	mu         sync.Mutex
	write      *bluetooth.DeviceCharacteristic
	disconnect func() error
	address    string
}

// NewBLE parses the UUIDs in cfg. The adapter is not touched until Connect.
func NewBLE(cfg BLEConfig, status reminder.StatusSink, logger zerolog.Logger) (*BLE, error) {
	if cfg.ServiceUUID == "" {
		cfg.ServiceUUID = DefaultServiceUUID
	}
	if cfg.CharacteristicUUID == "" {
		cfg.CharacteristicUUID = DefaultCharacteristicUUID
	}
	svc, err := bluetooth.ParseUUID(cfg.ServiceUUID)
	if err != nil {
		return nil, fmt.Errorf("parse service uuid %q: %w", cfg.ServiceUUID, err)
	}
	ch, err := bluetooth.ParseUUID(cfg.CharacteristicUUID)
	if err != nil {
		return nil, fmt.Errorf("parse characteristic uuid %q: %w", cfg.CharacteristicUUID, err)
	}
	if status == nil {
		status = reminder.StatusFunc(func(reminder.Topic, string) {})
	}
	return &BLE{
		adapter: bluetooth.DefaultAdapter,
		name:    cfg.Name,
		service: svc,
		char:    ch,
		status:  status,
		logger:  logger.With().Str("component", "ble").Logger(),
	}, nil
}

// Connected reports whether a characteristic is attached.
func (b *BLE) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.write != nil
}

// Address of the attached peripheral, empty when disconnected.
func (b *BLE) Address() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.address
}

// Connect scans until a matching peripheral is seen or ctx ends, then
// connects and discovers the command characteristic.
func (b *BLE) Connect(ctx context.Context) error {
	if err := b.adapter.Enable(); err != nil {
		b.status.SetStatus(reminder.TopicConnection, "Bluetooth: Connection failed")
		return fmt.Errorf("enable adapter: %w", err)
	}

	b.status.SetStatus(reminder.TopicConnection, "Bluetooth: Scanning...")
	result, err := b.scan(ctx)
	if err != nil {
		b.status.SetStatus(reminder.TopicConnection, "Bluetooth: Connection failed")
		return err
	}

	b.logger.Info().
		Str("address", result.Address.String()).
		Str("name", result.LocalName()).
		Msg("Connecting to bottle")

	dev, err := b.adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		b.status.SetStatus(reminder.TopicConnection, "Bluetooth: Connection failed")
		return fmt.Errorf("connect %s: %w", result.Address.String(), err)
	}

	services, err := dev.DiscoverServices([]bluetooth.UUID{b.service})
	if err != nil || len(services) == 0 {
		_ = dev.Disconnect()
		b.status.SetStatus(reminder.TopicConnection, "Bluetooth: Connection failed")
		return fmt.Errorf("discover service %s: %w", b.service.String(), orNotFound(err))
	}
	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{b.char})
	if err != nil || len(chars) == 0 {
		_ = dev.Disconnect()
		b.status.SetStatus(reminder.TopicConnection, "Bluetooth: Connection failed")
		return fmt.Errorf("discover characteristic %s: %w", b.char.String(), orNotFound(err))
	}

	b.mu.Lock()
	b.write = &chars[0]
	b.disconnect = dev.Disconnect
	b.address = result.Address.String()
	b.mu.Unlock()

	b.logger.Info().Str("address", result.Address.String()).Msg("Bottle connected")
	b.status.SetStatus(reminder.TopicConnection, reminder.ConnectedText)
	return nil
}

func (b *BLE) scan(ctx context.Context) (bluetooth.ScanResult, error) {
	found := make(chan bluetooth.ScanResult, 1)
	done := make(chan error, 1)

	go func() {
		done <- b.adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
			if !b.matches(r) {
				return
			}
			select {
			case found <- r:
			default:
			}
			_ = a.StopScan()
		})
	}()

	select {
	case r := <-found:
		<-done
		return r, nil
	case err := <-done:
		select {
		case r := <-found:
			return r, nil
		default:
		}
		if err == nil {
			err = fmt.Errorf("scan ended without finding the bottle")
		}
		return bluetooth.ScanResult{}, fmt.Errorf("scan: %w", err)
	case <-ctx.Done():
		_ = b.adapter.StopScan()
		<-done
		return bluetooth.ScanResult{}, fmt.Errorf("scan: %w", ctx.Err())
	}
}

func (b *BLE) matches(r bluetooth.ScanResult) bool {
	return matchAdvertisement(b.name, r.LocalName(), r.HasServiceUUID(b.service))
}

// matchAdvertisement accepts any peripheral advertising the command service.
// A configured name narrows that to one bottle; it never replaces the service check.
func matchAdvertisement(name, localName string, hasService bool) bool {
	if !hasService {
		return false
	}
	return name == "" || strings.EqualFold(localName, name)
}

// Send writes cmd to the characteristic.
func (b *BLE) Send(ctx context.Context, cmd reminder.Command) error {
	if err := ctx.Err(); err != nil {
		return &reminder.TransportError{Command: cmd, Err: err}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.write == nil {
		return fmt.Errorf("send %s: %w", cmd, reminder.ErrTransportUnavailable)
	}
	if _, err := b.write.WriteWithoutResponse(cmd.Bytes()); err != nil {
		return &reminder.TransportError{Command: cmd, Err: err}
	}
	return nil
}

// Disconnect drops the peripheral. It is a no-op when nothing is attached.
func (b *BLE) Disconnect() error {
	b.mu.Lock()
	disconnect := b.disconnect
	b.write = nil
	b.disconnect = nil
	b.address = ""
	b.mu.Unlock()

	if disconnect == nil {
		return nil
	}
	b.status.SetStatus(reminder.TopicConnection, reminder.DisconnectedText)
	if err := disconnect(); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

func orNotFound(err error) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("not found")
}
