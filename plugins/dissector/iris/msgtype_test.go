package iris

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVocabularySize(t *testing.T) {
	assert.Len(t, Vocabulary(), 88)
	assert.Len(t, messageTypeNames, 88)
}

func TestVocabularySorted(t *testing.T) {
	v := Vocabulary()
	assert.True(t, sort.SliceIsSorted(v, func(i, j int) bool { return v[i] < v[j] }))
	for _, mt := range v {
		assert.True(t, mt.Known(), "%d from Vocabulary is not Known", mt)
	}
}

func TestKnownLiterals(t *testing.T) {
	tests := []struct {
		code uint16
		name string
	}{
		{21320, "HANDSHAKE"},
		{18256, "PING"},
		{12880, "PING_TWO"},
		{17236, "COMMIT"},
		{21076, "ROLLBACK"},
		{20035, "CONNECT"},
		{16707, "JDBC_CATALOGS"},
		{23123, "STREAM_SET_BYTES"},
		{14681, "MESSAGE_JAVA_OBJECT_CREATED"},
		{18757, "EXTERNAL_INTERRUPT"},
		{21327, "OPEN_STREAM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt := MessageType(tt.code)
			assert.True(t, mt.Known())
			assert.Equal(t, tt.name, mt.String())
		})
	}
}

func TestUnknownCodes(t *testing.T) {
	for _, code := range []uint16{0, 1, 65535, 21321, 0x4141} {
		mt := MessageType(code)
		assert.False(t, mt.Known(), "code %d", code)
		assert.Contains(t, mt.String(), "UNKNOWN")
	}
}

func TestMnemonic(t *testing.T) {
	assert.Equal(t, "HS", Handshake.Mnemonic())
	assert.Equal(t, "PG", Ping.Mnemonic())
	assert.Equal(t, "TC", Commit.Mnemonic())
	assert.Equal(t, "CN", Connect.Mnemonic())
	assert.Equal(t, "0001", MessageType(1).Mnemonic())
}

func TestConstantsMatchTable(t *testing.T) {
	// Spot-check that the named constants are what the table stores.
	assert.Equal(t, "HANDSHAKE", Handshake.String())
	assert.Equal(t, "JDBC_UDTS", JDBCUDTs.String())
	assert.Equal(t, "GET_IRIS_INFO", GetIRISInfo.String())
	assert.Equal(t, "READ_COMMITTED", ReadCommitted.String())
}
