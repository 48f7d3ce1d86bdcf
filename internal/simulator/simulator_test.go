package simulator

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sensaur-hub/internal/hub"
	"sensaur-hub/internal/protocol"
)

const fixtureYAML = `
devices:
  - id: "c0ffee"
    version: "2.1"
    min: 1
    max: 2
    components:
      - "i,CO2,K-30,PPM"
      - "o,relay,SRD-05,state"
  - components:
      - "i,humidity,DHT22,%"
`

func readAll(t *testing.T, conn *Connection, n int) []string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		line, err := conn.ReadLine(ctx)
		require.NoError(t, err)
		lines = append(lines, line)
	}
	return lines
}

func TestParseFixture(t *testing.T) {
	fixture, err := ParseFixture([]byte(fixtureYAML))
	require.NoError(t, err)
	require.Len(t, fixture.Devices, 2)

	assert.Equal(t, "c0ffee", fixture.Devices[0].ID)
	assert.Equal(t, "2.1", fixture.Devices[0].Version)
	assert.Equal(t, "1", fixture.Devices[1].Version)
	assert.Equal(t, 10.0, fixture.Devices[1].Min)
	assert.Equal(t, 20.0, fixture.Devices[1].Max)
}

func TestParseFixtureErrors(t *testing.T) {
	_, err := ParseFixture([]byte("devices: ["))
	assert.Error(t, err)

	_, err = ParseFixture([]byte("devices:\n  - id: x\n"))
	assert.Error(t, err)

	_, err = ParseFixture([]byte("devices:\n  - min: 5\n    max: 1\n    components: [\"i,a,b,c\"]\n"))
	assert.Error(t, err)
}

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o600))

	fixture, err := LoadFixture(path)
	require.NoError(t, err)
	assert.Len(t, fixture.Devices, 2)

	_, err = LoadFixture(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConnectionInfo(t *testing.T) {
	fixture, err := ParseFixture([]byte(fixtureYAML))
	require.NoError(t, err)

	conn := NewConnection(fixture.Devices[0], rand.New(rand.NewSource(1)), zap.NewNop())
	require.NoError(t, conn.Open(context.Background()))
	defer conn.Close()

	assert.Equal(t, "sim:c0ffee", conn.Name())
	require.NoError(t, conn.WriteLine(context.Background(), "info"))
	assert.Equal(t, []string{
		"id:c0ffee",
		"version:2.1",
		"count:2",
		"comp:0:i,CO2,K-30,PPM",
		"comp:1:o,relay,SRD-05,state",
	}, readAll(t, conn, 5))
}

func TestConnectionPollAndSet(t *testing.T) {
	fixture, err := ParseFixture([]byte(fixtureYAML))
	require.NoError(t, err)

	conn := NewConnection(fixture.Devices[0], rand.New(rand.NewSource(1)), zap.NewNop())
	require.NoError(t, conn.Open(context.Background()))
	defer conn.Close()

	ctx := context.Background()
	require.NoError(t, conn.WriteLine(ctx, protocol.FormatCommand(protocol.SetCommand(1, "1"))))
	require.NoError(t, conn.WriteLine(ctx, "poll"))

	line := readAll(t, conn, 1)[0]
	require.True(t, strings.HasPrefix(line, "val:"))
	values := strings.Split(strings.TrimPrefix(line, "val:"), ",")
	require.Len(t, values, 2)

	reading, err := strconv.ParseFloat(values[0], 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, reading, 1.0)
	assert.LessOrEqual(t, reading, 2.0)
	assert.Regexp(t, `^\d+\.\d{2}$`, values[0])
	assert.Equal(t, "1", values[1])

	value, ok := conn.Actuator(1)
	assert.True(t, ok)
	assert.Equal(t, "1", value)

	assert.Error(t, conn.WriteLine(ctx, "set:5:1"))
	assert.Error(t, conn.WriteLine(ctx, "reboot"))
}

func TestConnectionClosed(t *testing.T) {
	conn := NewConnection(DeviceFixture{Components: []string{"i,a,b,c"}}, rand.New(rand.NewSource(7)), zap.NewNop())
	assert.NotEmpty(t, conn.DeviceID())

	_, err := conn.ReadLine(context.Background())
	assert.ErrorIs(t, err, protocol.ErrConnectionClosed)
	assert.ErrorIs(t, conn.WriteLine(context.Background(), "info"), protocol.ErrConnectionClosed)

	require.NoError(t, conn.Open(context.Background()))
	assert.True(t, conn.IsOpen())

	errc := make(chan error, 1)
	go func() {
		_, err := conn.ReadLine(context.Background())
		errc <- err
	}()
	require.NoError(t, conn.Close())
	assert.ErrorIs(t, <-errc, protocol.ErrConnectionClosed)
}

// The simulated device drives a hub end to end through the line protocol.
func TestConnectionFeedsHub(t *testing.T) {
	fixture, err := ParseFixture([]byte(fixtureYAML))
	require.NoError(t, err)
	conns := NewConnections(fixture, 42, zap.NewNop())
	require.Len(t, conns, 2)

	h := hub.New(hub.Options{ID: "h", OwnerID: "o"})
	ctx := context.Background()
	for _, conn := range conns {
		require.NoError(t, conn.Open(ctx))
		defer conn.Close()
		h.Attach(conn.Name())

		require.NoError(t, conn.WriteLine(ctx, "info"))
		require.NoError(t, conn.WriteLine(ctx, "poll"))
		n := 3 + len(conn.device.Components) + 1
		for _, line := range readAll(t, conn, n) {
			_, err := h.HandleLine(conn.Name(), line, time.Now())
			require.NoError(t, err)
		}
	}

	values := h.SensorValues()
	assert.Contains(t, values, "c0ffee-CO2")
	assert.Contains(t, values, conns[1].DeviceID()+"-humidi")
	assert.NotContains(t, values, "c0ffee-relay")
}
