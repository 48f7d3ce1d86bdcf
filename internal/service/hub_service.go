// internal/service/hub_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"sensaur-hub/internal/hub"
	"sensaur-hub/internal/protocol"
	"sensaur-hub/internal/repository"
	"sensaur-hub/internal/utils"
	"sensaur-hub/internal/wire"
)

var (
	ErrConnectionExists  = errors.New("connection already registered")
	ErrServiceRunning    = errors.New("hub service already running")
	ErrUnsupportedTopic  = errors.New("topic does not accept messages")
	ErrConnectionOffline = errors.New("connection is not open")
)

// idlePollDelay is used while polling is disabled
const idlePollDelay = 500 * time.Millisecond

// link is one device connection and the state the service keeps for it
type link struct {
	conn    protocol.LineConnection
	logger  *utils.DeviceLogger
	writeMu sync.Mutex
}

func (l *link) write(ctx context.Context, cmd protocol.Command) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if !l.conn.IsOpen() {
		return fmt.Errorf("%w: %s", ErrConnectionOffline, l.conn.Name())
	}
	return l.conn.WriteLine(ctx, protocol.FormatCommand(cmd))
}

// ConnectionInfo describes a registered connection
type ConnectionInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Open bool   `json:"open"`
}

// HubService runs the device connections of a hub: it reads device lines,
// polls for values, publishes hub messages and persists readings.
type HubService struct {
	hub        *hub.Hub
	codec      wire.Codec
	inbound    wire.Codec
	publisher  hub.Publisher
	readings   repository.ReadingRepository
	retryDelay time.Duration
	logger     *utils.ServiceLogger

	mu           sync.Mutex
	links        map[string]*link
	order        []string
	devicesDirty bool
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewHubService creates a new hub service. readings may be nil when
// persistence is disabled.
func NewHubService(
	h *hub.Hub,
	codec wire.Codec,
	publisher hub.Publisher,
	readings repository.ReadingRepository,
	retryDelay time.Duration,
	logger *zap.Logger,
) *HubService {
	return &HubService{
		hub:        h,
		codec:      codec,
		inbound:    wire.JSONCodec{},
		publisher:  publisher,
		readings:   readings,
		retryDelay: retryDelay,
		logger:     utils.NewServiceLogger(logger, "hub-service"),
		links:      make(map[string]*link),
	}
}

// Hub returns the hub state the service maintains
func (hs *HubService) Hub() *hub.Hub {
	return hs.hub
}

// AddConnection registers a device connection. Connections added while the
// service is running are started immediately.
func (hs *HubService) AddConnection(conn protocol.LineConnection) error {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	name := conn.Name()
	if _, exists := hs.links[name]; exists {
		return fmt.Errorf("%w: %s", ErrConnectionExists, name)
	}

	l := &link{
		conn:   conn,
		logger: utils.NewDeviceLogger(hs.logger.Logger, name, string(conn.Type())),
	}
	hs.links[name] = l
	hs.order = append(hs.order, name)

	if hs.ctx != nil {
		hs.startLink(l)
	}
	return nil
}

// Connections lists registered connections in registration order
func (hs *HubService) Connections() []ConnectionInfo {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	infos := make([]ConnectionInfo, 0, len(hs.order))
	for _, name := range hs.order {
		l := hs.links[name]
		infos = append(infos, ConnectionInfo{
			Name: name,
			Type: string(l.conn.Type()),
			Open: l.conn.IsOpen(),
		})
	}
	return infos
}

// Start opens all connections and starts the poll loop. It returns once the
// goroutines are running.
func (hs *HubService) Start(ctx context.Context) error {
	hs.mu.Lock()
	if hs.ctx != nil {
		hs.mu.Unlock()
		return ErrServiceRunning
	}
	hs.ctx, hs.cancel = context.WithCancel(ctx)
	for _, name := range hs.order {
		hs.startLink(hs.links[name])
	}
	runCtx := hs.ctx
	hs.mu.Unlock()

	hs.logger.Info("Hub service started",
		zap.String("hub_id", hs.hub.ID()),
		zap.String("owner_id", hs.hub.OwnerID()),
		zap.Int("connections", len(hs.Connections())),
		zap.String("wire_format", hs.codec.Name()),
	)

	hs.publishStatus(runCtx)

	hs.wg.Add(1)
	go hs.pollLoop(runCtx)
	return nil
}

// Stop cancels all goroutines, closes every connection and waits for the
// readers to exit.
func (hs *HubService) Stop() {
	hs.mu.Lock()
	cancel := hs.cancel
	links := make([]*link, 0, len(hs.links))
	for _, name := range hs.order {
		links = append(links, hs.links[name])
	}
	hs.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	for _, l := range links {
		if err := l.conn.Close(); err != nil {
			l.logger.LogConnection("close", err)
		}
	}
	hs.wg.Wait()

	hs.mu.Lock()
	hs.ctx, hs.cancel = nil, nil
	hs.mu.Unlock()

	hs.logger.Info("Hub service stopped")
}

// startLink must be called with the mutex held.
func (hs *HubService) startLink(l *link) {
	hs.wg.Add(1)
	go hs.runLink(hs.ctx, l)
}

// runLink keeps one connection open, reading device lines until the context
// ends. A failed connection is detached and retried after the retry delay.
func (hs *HubService) runLink(ctx context.Context, l *link) {
	defer hs.wg.Done()
	defer l.conn.Close()
	name := l.conn.Name()

	for {
		if err := l.conn.Open(ctx); err != nil {
			l.logger.LogConnection("open", err)
			if !hs.sleep(ctx, hs.retryDelay) {
				return
			}
			continue
		}
		l.logger.LogConnection("open", nil)

		hs.hub.Attach(name)
		hs.markDevicesDirty()
		if err := l.write(ctx, protocol.Command{Kind: protocol.CommandInfo}); err != nil {
			l.logger.LogConnection("info", err)
		}

		err := hs.readLines(ctx, l)
		if ctx.Err() != nil {
			return
		}

		l.logger.LogConnection("read", err)
		if err := hs.hub.Detach(name); err != nil {
			l.logger.Warn("Failed to detach device", zap.Error(err))
		}
		hs.markDevicesDirty()
		if err := l.conn.Close(); err != nil {
			l.logger.LogConnection("close", err)
		}

		if !hs.sleep(ctx, hs.retryDelay) {
			return
		}
	}
}

// readLines feeds lines to the hub until reading fails
func (hs *HubService) readLines(ctx context.Context, l *link) error {
	for {
		line, err := l.conn.ReadLine(ctx)
		if err != nil {
			return err
		}
		hs.handleLine(l, line, time.Now())
	}
}

func (hs *HubService) handleLine(l *link, line string, at time.Time) {
	msg, err := hs.hub.HandleLine(l.conn.Name(), line, at)
	if err != nil {
		l.logger.Warn("Failed to apply device line", zap.String("line", line), zap.Error(err))
		return
	}

	switch msg.Kind {
	case protocol.MessageVersion:
		if device, err := hs.hub.DeviceAt(l.conn.Name()); err == nil {
			l.logger.LogIdentity(device.ID, device.Version)
		}
	case protocol.MessageDescriptor:
		l.logger.LogDescriptor(msg.Index, msg.Descriptor)
	case protocol.MessageUnknown:
		l.logger.LogUnknownLine(line)
	}

	if msg.IsMetadata() {
		hs.markDevicesDirty()
	}
}

func (hs *HubService) markDevicesDirty() {
	hs.mu.Lock()
	hs.devicesDirty = true
	hs.mu.Unlock()
}

// takeDevicesDirty reports and clears pending device changes
func (hs *HubService) takeDevicesDirty() bool {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	dirty := hs.devicesDirty
	hs.devicesDirty = false
	return dirty
}

// pollLoop requests values at the hub polling interval. The interval is
// re-read on each round so config changes apply without a restart.
func (hs *HubService) pollLoop(ctx context.Context) {
	defer hs.wg.Done()

	for {
		interval := hs.hub.PollingInterval()
		polling := interval > 0
		if !polling {
			interval = idlePollDelay
		}
		if !hs.sleep(ctx, interval) {
			return
		}

		if hs.takeDevicesDirty() {
			hs.publishDevices(ctx)
		}
		if polling {
			hs.Poll(ctx)
		}
	}
}

// Poll publishes the values received since the last round, persists them
// and asks every open connection for new values.
func (hs *HubService) Poll(ctx context.Context) {
	readings := hs.hub.SensorReadings()
	values := make(map[string]string, len(readings))
	for _, r := range readings {
		values[r.ComponentID] = r.Value
	}
	hs.publish(ctx, hs.hub.Topics().Sensors(), values)

	if hs.readings != nil && len(readings) > 0 {
		if _, err := hs.readings.SaveReadings(ctx, readings, time.Now()); err != nil {
			hs.logger.Error("Failed to persist readings", zap.Error(err))
		}
	}

	for _, l := range hs.openLinks() {
		if err := l.write(ctx, protocol.Command{Kind: protocol.CommandPoll}); err != nil {
			l.logger.LogConnection("poll", err)
		}
	}
}

// FlushDevices publishes pending device changes immediately
func (hs *HubService) FlushDevices(ctx context.Context) {
	if hs.takeDevicesDirty() {
		hs.publishDevices(ctx)
	}
}

func (hs *HubService) openLinks() []*link {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	var open []*link
	for _, name := range hs.order {
		if l := hs.links[name]; l.conn.IsOpen() {
			open = append(open, l)
		}
	}
	return open
}

func (hs *HubService) linkFor(name string) (*link, bool) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	l, ok := hs.links[name]
	return l, ok
}

// publishStatus announces the hub
func (hs *HubService) publishStatus(ctx context.Context) {
	hs.publish(ctx, hs.hub.Topics().Status(), hs.hub.Status())
}

// publishDevices sends the device info map and, per device, the id of this
// hub. Device records are persisted alongside.
func (hs *HubService) publishDevices(ctx context.Context) {
	topics := hs.hub.Topics()
	for _, deviceID := range hs.hub.DeviceIDs() {
		hs.publish(ctx, topics.Device(deviceID), hs.hub.ID())
	}
	hs.publish(ctx, topics.Devices(), hs.hub.DeviceInfos())

	if hs.readings == nil {
		return
	}
	for _, device := range hs.hub.Devices() {
		if device.ID == "" {
			continue
		}
		if err := hs.readings.SaveDevice(ctx, device); err != nil {
			hs.logger.Error("Failed to persist device", zap.String("device_id", device.ID), zap.Error(err))
		}
	}
}

func (hs *HubService) publish(ctx context.Context, topic string, v any) {
	payload, err := hs.codec.Encode(v)
	if err != nil {
		hs.logger.Error("Failed to encode message", zap.String("topic", topic), zap.Error(err))
		return
	}

	msg := hub.Message{
		Topic:       topic,
		Payload:     payload,
		ContentType: hs.codec.ContentType(),
	}
	if err := hs.publisher.Publish(ctx, msg); err != nil {
		hs.logger.Warn("Failed to publish message", zap.String("topic", topic), zap.Error(err))
		return
	}
	hs.logger.Debug("Message published", zap.String("topic", topic), zap.Int("bytes", len(payload)))
}

// HandleMessage applies a JSON message received on one of the hub's inbound
// topics.
func (hs *HubService) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	topics := hs.hub.Topics()

	switch topic {
	case topics.Config():
		var cfg hub.ConfigMessage
		if err := hs.inbound.Decode(payload, &cfg); err != nil {
			return fmt.Errorf("%w: %v", hub.ErrInvalidConfig, err)
		}
		return hs.ApplyConfig(ctx, cfg)

	case topics.Actuators():
		var raw map[string]any
		if err := hs.inbound.Decode(payload, &raw); err != nil {
			return fmt.Errorf("invalid actuator message: %w", err)
		}
		values := make(map[string]string, len(raw))
		for id, v := range raw {
			values[id] = actuatorValue(v)
		}
		_, err := hs.SetActuators(ctx, values)
		return err

	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedTopic, topic)
	}
}

// ApplyConfig updates the hub configuration and republishes the status
func (hs *HubService) ApplyConfig(ctx context.Context, cfg hub.ConfigMessage) error {
	if err := hs.hub.ApplyConfig(cfg); err != nil {
		return err
	}

	fields := []zap.Field{zap.Duration("polling_interval", hs.hub.PollingInterval())}
	if cfg.FirmwareURL != nil {
		fields = append(fields, zap.String("firmware_url", *cfg.FirmwareURL))
	}
	hs.logger.Info("Hub config applied", fields...)

	hs.publishStatus(ctx)
	return nil
}

// SetActuators sends actuator values to the devices that own them. Values
// for known actuators are sent even when others fail to resolve; all
// failures are returned together.
func (hs *HubService) SetActuators(ctx context.Context, values map[string]string) ([]hub.ActuatorTarget, error) {
	targets, resolveErr := hs.hub.ResolveActuators(values)
	errs := []error{resolveErr}

	sent := make([]hub.ActuatorTarget, 0, len(targets))
	for _, target := range targets {
		l, ok := hs.linkFor(target.Port)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrConnectionOffline, target.Port))
			continue
		}
		if err := l.write(ctx, protocol.SetCommand(target.Index, target.Value)); err != nil {
			errs = append(errs, fmt.Errorf("failed to set %s: %w", target.ComponentID, err))
			continue
		}
		l.logger.Info("Actuator set",
			zap.String("component_id", target.ComponentID),
			zap.String("value", target.Value),
		)
		sent = append(sent, target)
	}

	return sent, errors.Join(errs...)
}

// actuatorValue renders a decoded actuator value as device text
func actuatorValue(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		if value {
			return "1"
		}
		return "0"
	case nil:
		return ""
	default:
		return fmt.Sprint(value)
	}
}

// sleep waits for d or until ctx is done. It reports whether ctx is still
// live.
func (hs *HubService) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
