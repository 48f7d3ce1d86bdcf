package service

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sensaur-hub/internal/hub"
	"sensaur-hub/internal/repository"
	"sensaur-hub/internal/simulator"
	"sensaur-hub/internal/wire"
)

type fakePublisher struct {
	mu       sync.Mutex
	messages []hub.Message
}

func (p *fakePublisher) Publish(ctx context.Context, msg hub.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

// last returns the newest payload published on topic
func (p *fakePublisher) last(topic string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.messages) - 1; i >= 0; i-- {
		if p.messages[i].Topic == topic {
			return p.messages[i].Payload, true
		}
	}
	return nil, false
}

func (p *fakePublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, msg := range p.messages {
		if msg.Topic == topic {
			n++
		}
	}
	return n
}

type fakeReadings struct {
	mu       sync.Mutex
	devices  []hub.DeviceSnapshot
	readings []hub.SensorReading
}

func (r *fakeReadings) SaveDevice(ctx context.Context, device hub.DeviceSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = append(r.devices, device)
	return nil
}

func (r *fakeReadings) SaveReadings(ctx context.Context, readings []hub.SensorReading, at time.Time) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readings = append(r.readings, readings...)
	return uuid.New(), nil
}

func (r *fakeReadings) ListReadings(ctx context.Context, filter *repository.ReadingFilter) ([]*repository.Reading, error) {
	return nil, nil
}

func (r *fakeReadings) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	return 0, nil
}

func newTestService(t *testing.T, interval time.Duration, readings repository.ReadingRepository) (*HubService, *fakePublisher) {
	t.Helper()
	h := hub.New(hub.Options{ID: "h1", OwnerID: "o1", Host: "hub.local", PollingInterval: interval})
	pub := &fakePublisher{}
	return NewHubService(h, wire.JSONCodec{}, pub, readings, 10*time.Millisecond, zap.NewNop()), pub
}

func newSimDevice(id string) *simulator.Connection {
	return simulator.NewConnection(simulator.DeviceFixture{
		ID:         id,
		Version:    "1",
		Min:        10,
		Max:        20,
		Components: []string{"i,CO2,K-30,PPM", "o,relay,SRD-05,state"},
	}, rand.New(rand.NewSource(1)), zap.NewNop())
}

func TestHubServiceRunsSimulatedDevice(t *testing.T) {
	readings := &fakeReadings{}
	hs, pub := newTestService(t, 20*time.Millisecond, readings)
	sim := newSimDevice("d1")
	require.NoError(t, hs.AddConnection(sim))

	require.NoError(t, hs.Start(context.Background()))
	defer hs.Stop()

	topics := hs.Hub().Topics()

	status, ok := pub.last(topics.Status())
	require.True(t, ok)
	assert.Contains(t, string(status), `"hub_id":"h1"`)

	require.Eventually(t, func() bool {
		payload, ok := pub.last(topics.Devices())
		if !ok {
			return false
		}
		var infos map[string]hub.DeviceInfo
		if err := json.Unmarshal(payload, &infos); err != nil {
			return false
		}
		return len(infos["d1"].Components) == 2
	}, 2*time.Second, 10*time.Millisecond)

	deviceTopic, ok := pub.last(topics.Device("d1"))
	require.True(t, ok)
	assert.Equal(t, `"h1"`, string(deviceTopic))

	require.Eventually(t, func() bool {
		payload, ok := pub.last(topics.Sensors())
		if !ok {
			return false
		}
		var values map[string]string
		if err := json.Unmarshal(payload, &values); err != nil {
			return false
		}
		_, ok = values["d1-CO2"]
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		readings.mu.Lock()
		defer readings.mu.Unlock()
		return len(readings.readings) > 0 && len(readings.devices) > 0
	}, 2*time.Second, 10*time.Millisecond)

	sent, err := hs.SetActuators(context.Background(), map[string]string{"d1-relay": "1"})
	require.NoError(t, err)
	require.Len(t, sent, 1)
	value, ok := sim.Actuator(1)
	require.True(t, ok)
	assert.Equal(t, "1", value)

	infos := hs.Connections()
	require.Len(t, infos, 1)
	assert.Equal(t, "sim:d1", infos[0].Name)
	assert.True(t, infos[0].Open)
}

func TestHubServiceActuatorMessage(t *testing.T) {
	hs, _ := newTestService(t, 20*time.Millisecond, nil)
	sim := newSimDevice("d2")
	require.NoError(t, hs.AddConnection(sim))
	require.NoError(t, hs.Start(context.Background()))
	defer hs.Stop()

	// the descriptor of the relay arrives last
	require.Eventually(t, func() bool {
		c, err := hs.Hub().Component("d2", 1)
		return err == nil && c.Dir == "o"
	}, 2*time.Second, 10*time.Millisecond)

	topic := hs.Hub().Topics().Actuators()
	err := hs.HandleMessage(context.Background(), topic, []byte(`{"d2-relay": 1, "d2-nope": "x"}`))
	assert.ErrorIs(t, err, hub.ErrComponentNotFound)

	value, ok := sim.Actuator(1)
	require.True(t, ok)
	assert.Equal(t, "1", value)
}

func TestHubServiceHandleConfig(t *testing.T) {
	hs, pub := newTestService(t, time.Second, nil)
	ctx := context.Background()
	topic := hs.Hub().Topics().Config()

	require.NoError(t, hs.HandleMessage(ctx, topic, []byte(`{"polling_interval": 0.25}`)))
	assert.Equal(t, 250*time.Millisecond, hs.Hub().PollingInterval())
	assert.Equal(t, 1, pub.count(hs.Hub().Topics().Status()))

	require.NoError(t, hs.HandleMessage(ctx, topic, []byte(`{"firmware_url": "https://fw.example/1.bin"}`)))
	assert.Equal(t, "https://fw.example/1.bin", hs.Hub().FirmwareURL())
	assert.Equal(t, 250*time.Millisecond, hs.Hub().PollingInterval())

	err := hs.HandleMessage(ctx, topic, []byte(`{"polling_interval": -1}`))
	assert.ErrorIs(t, err, hub.ErrInvalidConfig)

	err = hs.HandleMessage(ctx, topic, []byte(`not json`))
	assert.ErrorIs(t, err, hub.ErrInvalidConfig)

	err = hs.HandleMessage(ctx, hs.Hub().Topics().Sensors(), []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnsupportedTopic)
}

func TestHubServicePollPublishesAndPersists(t *testing.T) {
	readings := &fakeReadings{}
	hs, pub := newTestService(t, time.Second, readings)
	h := hs.Hub()

	h.Attach("p1")
	for _, line := range []string{"id:d1", "count:2", "comp:0:i,CO2,K-30,PPM", "comp:1:o,relay,SRD,state", "val:412,0"} {
		_, err := h.HandleLine("p1", line, time.Now())
		require.NoError(t, err)
	}

	hs.Poll(context.Background())

	payload, ok := pub.last(h.Topics().Sensors())
	require.True(t, ok)
	assert.JSONEq(t, `{"d1-CO2":"412"}`, string(payload))

	require.Len(t, readings.readings, 1)
	assert.Equal(t, hub.SensorReading{DeviceID: "d1", ComponentID: "d1-CO2", Value: "412"}, readings.readings[0])
}

func TestHubServiceFlushDevices(t *testing.T) {
	hs, pub := newTestService(t, time.Second, nil)
	h := hs.Hub()
	ctx := context.Background()

	hs.FlushDevices(ctx)
	assert.Equal(t, 0, pub.count(h.Topics().Devices()))

	h.Attach("p1")
	_, err := h.HandleLine("p1", "id:d7", time.Now())
	require.NoError(t, err)
	hs.markDevicesDirty()

	hs.FlushDevices(ctx)
	payload, ok := pub.last(h.Topics().Device("d7"))
	require.True(t, ok)
	assert.Equal(t, `"h1"`, string(payload))
	payload, ok = pub.last(h.Topics().Devices())
	require.True(t, ok)
	assert.JSONEq(t, `{"d7":{"version":"","components":[]}}`, string(payload))

	hs.FlushDevices(ctx)
	assert.Equal(t, 1, pub.count(h.Topics().Devices()))
}

func TestAddConnectionRejectsDuplicates(t *testing.T) {
	hs, _ := newTestService(t, time.Second, nil)

	require.NoError(t, hs.AddConnection(newSimDevice("d1")))
	err := hs.AddConnection(newSimDevice("d1"))
	assert.ErrorIs(t, err, ErrConnectionExists)
}

func TestActuatorValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "string", in: "on", want: "on"},
		{name: "integer number", in: float64(1), want: "1"},
		{name: "fraction", in: 0.5, want: "0.5"},
		{name: "true", in: true, want: "1"},
		{name: "false", in: false, want: "0"},
		{name: "null", in: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, actuatorValue(tt.in))
		})
	}
}
