package pipeline

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/otusdpi/internal/core"
	"firestige.xyz/otusdpi/internal/engine"
	"firestige.xyz/otusdpi/internal/source/file"
	"firestige.xyz/otusdpi/plugins/dissector/iris"
)

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type frame struct {
	ts   time.Time
	data []byte
}

func tcpFrame(t *testing.T, sport, dport uint16, seq uint32, payload []byte) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 5},
		DstMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 6},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolTCP,
		SrcIP: net.IP{10, 0, 0, 1}, DstIP: net.IP{10, 0, 0, 2}}
	tcp := &layers.TCP{SrcPort: layers.TCPPort(sport), DstPort: layers.TCPPort(dport), Seq: seq, ACK: true, PSH: true, Window: 1024}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload(payload)))
	return buf.Bytes()
}

func arpFrame() []byte {
	b := make([]byte, 42)
	copy(b[0:6], []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
	binary.BigEndian.PutUint16(b[12:14], uint16(layers.EthernetTypeARP))
	return b
}

func irisPayload(mt iris.MessageType) []byte {
	b := make([]byte, iris.HeaderSize)
	binary.LittleEndian.PutUint16(b[12:14], uint16(mt))
	return b
}

func capture(t *testing.T, frames []frame) *file.Source {
	t.Helper()
	var buf bytes.Buffer
	w := pcapgo.NewWriter(&buf)
	require.NoError(t, w.WriteFileHeader(65535, layers.LinkTypeEthernet))
	for _, f := range frames {
		ci := gopacket.CaptureInfo{Timestamp: f.ts, CaptureLength: len(f.data), Length: len(f.data)}
		require.NoError(t, w.WritePacket(ci, f.data))
	}
	s, err := file.NewReader("test.pcap", &buf)
	require.NoError(t, err)
	return s
}

func irisEngine(t *testing.T, opts engine.Options) *engine.Engine {
	t.Helper()
	r := engine.NewRegistry()
	_, err := iris.Init(r, 1)
	require.NoError(t, err)
	if opts.Shards == 0 {
		opts.Shards = 4
	}
	e := engine.New(r, opts)
	t.Cleanup(e.Close)
	return e
}

func TestRunClassifiesCapture(t *testing.T) {
	src := capture(t, []frame{
		{start, tcpFrame(t, 51000, 1972, 1, irisPayload(iris.Handshake))},
		{start.Add(time.Millisecond), tcpFrame(t, 51000, 1972, 19, irisPayload(iris.Prepare))},
		{start.Add(2 * time.Millisecond), tcpFrame(t, 52000, 80, 1, []byte("GET / HTTP/1.1\r\nHost: example\r\n\r\n"))},
		{start.Add(3 * time.Millisecond), arpFrame()},
		{start.Add(4 * time.Millisecond), []byte{0x00, 0x01}},
	})
	eng := irisEngine(t, engine.Options{})

	p, err := NewBuilder().WithSource(src).WithEngine(eng).Build()
	require.NoError(t, err)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "test.pcap", stats.Source)
	assert.Equal(t, uint64(5), stats.Received)
	assert.Equal(t, uint64(3), stats.Decoded)
	assert.Equal(t, uint64(3), stats.Processed)
	assert.Equal(t, uint64(1), stats.Skipped, "arp is not an error")
	assert.Equal(t, uint64(1), stats.DecodeErrors)
	assert.Equal(t, uint64(1), stats.Classified)
	assert.Equal(t, uint64(3), stats.Layers.TCP)
	assert.Equal(t, start, stats.FirstPacket.UTC())
	assert.Equal(t, start.Add(2*time.Millisecond), stats.LastPacket.UTC())

	flows := eng.Flows()
	require.Len(t, flows, 2)
	assert.Equal(t, "IRIS", flows[0].Protocol)
	assert.Equal(t, uint64(2), flows[0].Packets)
	assert.Equal(t, "Unknown", flows[1].Protocol)
	assert.Equal(t, []string{"IRIS"}, flows[1].Excluded)
}

func TestRunExpiresOnPacketTime(t *testing.T) {
	var expired []engine.FlowSummary
	eng := irisEngine(t, engine.Options{
		IdleTimeout: 30 * time.Second,
		OnExpire:    func(s engine.FlowSummary) { expired = append(expired, s) },
	})
	src := capture(t, []frame{
		{start, tcpFrame(t, 51000, 1972, 1, irisPayload(iris.Connect))},
		{start.Add(20 * time.Second), tcpFrame(t, 52000, 1972, 1, irisPayload(iris.Ping))},
		{start.Add(2 * time.Minute), tcpFrame(t, 53000, 1972, 1, irisPayload(iris.Commit))},
	})

	p, err := NewBuilder().WithSource(src).WithEngine(eng).WithExpireInterval(10 * time.Second).Build()
	require.NoError(t, err)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(2), stats.Expired)
	require.Len(t, expired, 2)
	for _, s := range expired {
		assert.Equal(t, "IRIS", s.Protocol)
	}
	assert.Equal(t, 1, eng.Len())
}

// blockingSource never yields a frame; it waits for cancellation.
type blockingSource struct{}

func (blockingSource) ReadPacket(ctx context.Context) (core.RawPacket, error) {
	<-ctx.Done()
	return core.RawPacket{}, ctx.Err()
}
func (blockingSource) LinkType() layers.LinkType { return layers.LinkTypeEthernet }
func (blockingSource) Name() string              { return "blocking" }
func (blockingSource) Close() error              { return nil }

func TestRunStopsOnCancel(t *testing.T) {
	eng := irisEngine(t, engine.Options{IdleTimeout: time.Second})
	p, err := NewBuilder().WithSource(blockingSource{}).WithEngine(eng).
		WithWallClock(true).WithExpireInterval(5 * time.Millisecond).Build()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	stats, err := p.Run(ctx)
	assert.NoError(t, err)
	assert.Zero(t, stats.Received)
}

type failingSource struct{ blockingSource }

func (failingSource) ReadPacket(context.Context) (core.RawPacket, error) {
	return core.RawPacket{}, errors.New("interface went away")
}

func TestRunReturnsSourceError(t *testing.T) {
	p, err := New(Config{Source: failingSource{}, Engine: irisEngine(t, engine.Options{})})
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	assert.EqualError(t, err, "interface went away")
}

type wifiSource struct{ blockingSource }

func (wifiSource) LinkType() layers.LinkType { return layers.LinkTypeIEEE802_11 }

func TestNewRejectsUnsupportedLinkType(t *testing.T) {
	_, err := New(Config{Source: wifiSource{}, Engine: irisEngine(t, engine.Options{})})
	assert.True(t, errors.Is(err, core.ErrUnsupportedLinkType))

	_, err = New(Config{Engine: irisEngine(t, engine.Options{})})
	assert.Error(t, err)
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics("x")
	m.Received.Add(3)
	m.observeTimestamp(start)
	m.Reset()
	assert.Zero(t, m.Received.Load())
	assert.Zero(t, m.firstPacket.Load())
}
