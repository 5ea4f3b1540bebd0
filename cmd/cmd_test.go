package cmd

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/otusdpi/internal/report"
	"firestige.xyz/otusdpi/plugins/dissector/iris"
)

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	classifyFormat, classifyWorkers = "", 0
	protocolsVocabulary = ""
	validateConfigFile = ""
	configFile, logLevel = "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeCapture(t *testing.T, payloads map[uint16][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65535, layers.LinkTypeEthernet))

	ts := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	for sport, payload := range payloads {
		eth := &layers.Ethernet{SrcMAC: net.HardwareAddr{0, 0, 0, 0, 0, 1}, DstMAC: net.HardwareAddr{0, 0, 0, 0, 0, 2}, EthernetType: layers.EthernetTypeIPv4}
		ip := &layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolTCP, SrcIP: net.IP{192, 168, 0, 10}, DstIP: net.IP{192, 168, 0, 20}}
		tcp := &layers.TCP{SrcPort: layers.TCPPort(sport), DstPort: 1972, Seq: 1, ACK: true, PSH: true, Window: 512}
		require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

		buf := gopacket.NewSerializeBuffer()
		require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true},
			eth, ip, tcp, gopacket.Payload(payload)))

		data := buf.Bytes()
		ci := gopacket.CaptureInfo{Timestamp: ts, CaptureLength: len(data), Length: len(data)}
		require.NoError(t, w.WritePacket(ci, data))
		ts = ts.Add(time.Second)
	}
	return path
}

func irisHeader(mt iris.MessageType) []byte {
	b := make([]byte, iris.HeaderSize)
	binary.LittleEndian.PutUint16(b[12:14], uint16(mt))
	return b
}

func TestClassifyJSON(t *testing.T) {
	path := writeCapture(t, map[uint16][]byte{
		40001: irisHeader(iris.Handshake),
		40002: []byte("GET / HTTP/1.1\r\nHost: example\r\n\r\n"),
	})

	out, err := execute(t, "classify", "-o", "json", "-w", "1", path)
	require.NoError(t, err)

	var r report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, 2, r.Totals.Flows)
	assert.Equal(t, 1, r.Totals.Classified)
	require.Len(t, r.Sources, 1)
	assert.Equal(t, path, r.Sources[0].Name)
	assert.Equal(t, uint64(2), r.Sources[0].Packets)

	byProto := map[string]int{}
	for _, p := range r.Protocols {
		byProto[p.Protocol] = p.Flows
	}
	assert.Equal(t, map[string]int{"IRIS": 1, "Unknown": 1}, byProto)
}

func TestClassifyDisabledDissector(t *testing.T) {
	capture := writeCapture(t, map[uint16][]byte{40001: irisHeader(iris.Commit)})
	conf := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(conf, []byte("otus-dpi:\n  engine:\n    dissectors:\n      iris:\n        enabled: false\n"), 0644))

	out, err := execute(t, "classify", "-c", conf, "-o", "json", capture)
	require.NoError(t, err)

	var r report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, 0, r.Totals.Classified)
}

func TestClassifyReportsMissingFiles(t *testing.T) {
	good := writeCapture(t, map[uint16][]byte{40001: irisHeader(iris.Ping)})
	missing := filepath.Join(t.TempDir(), "missing.pcap")

	out, err := execute(t, "classify", "-o", "yaml", good, missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 capture files failed")
	assert.Contains(t, out, "protocol: IRIS")
	assert.Contains(t, out, "missing.pcap")
}

func TestClassifyRejectsFormat(t *testing.T) {
	_, err := execute(t, "classify", "-o", "csv", "x.pcap")
	assert.Error(t, err)

	_, err = execute(t, "classify")
	assert.Error(t, err, "at least one file is required")
}

func TestProtocols(t *testing.T) {
	out, err := execute(t, "protocols")
	require.NoError(t, err)
	assert.Contains(t, out, "IRIS")
	assert.Contains(t, out, "ipv4|ipv6|tcp|payload|no-retransmission")
}

func TestProtocolsVocabulary(t *testing.T) {
	out, err := execute(t, "protocols", "--vocabulary", "iris")
	require.NoError(t, err)
	assert.Contains(t, out, "HANDSHAKE")
	assert.Contains(t, out, "21320")
	assert.Contains(t, out, "88")

	_, err = execute(t, "protocols", "--vocabulary", "tds")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yml")
	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(good, []byte("otus-dpi:\n  engine:\n    shards: 8\n"), 0644))
	require.NoError(t, os.WriteFile(bad, []byte("otus-dpi:\n  engine:\n    shards: -1\n"), 0644))

	out, err := execute(t, "validate", "-f", good)
	require.NoError(t, err)
	assert.Contains(t, out, "VALID:")
	assert.Contains(t, out, "8 shard(s)")
	assert.Contains(t, out, "[IRIS]")

	_, err = execute(t, "validate", "-f", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID")
}
