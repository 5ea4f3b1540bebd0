package iris

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/otusdpi/pkg/dissector"
)

const testID dissector.ProtocolID = 42

// recordingFlow implements dissector.FlowContext and records every call.
type recordingFlow struct {
	current  dissector.ProtocolID
	confirms []confirmCall
	excludes int
}

type confirmCall struct {
	id         dissector.ProtocolID
	confidence dissector.Confidence
}

func (f *recordingFlow) Confirm(id dissector.ProtocolID, c dissector.Confidence) {
	f.confirms = append(f.confirms, confirmCall{id, c})
	if f.current == dissector.ProtocolUnknown {
		f.current = id
	}
}

func (f *recordingFlow) Exclude()                              { f.excludes++ }
func (f *recordingFlow) CurrentProtocol() dissector.ProtocolID { return f.current }

func payloadWithType(mt MessageType, extra int) []byte {
	h := golden
	h.MessageType = mt
	b := buildHeader(h)
	return append(b, make([]byte, extra)...)
}

func TestSearchShortPayloadAlwaysExcludes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for n := 0; n < HeaderSize; n++ {
		for i := 0; i < 20; i++ {
			payload := make([]byte, n)
			rng.Read(payload)

			flow := &recordingFlow{}
			outcome := Search(flow, testID, payload)

			assert.Equal(t, OutcomeExclude, outcome, "length %d", n)
			assert.Equal(t, 1, flow.excludes)
			assert.Empty(t, flow.confirms)
		}
	}
}

func TestSearchKnownTypeConfirmsOnce(t *testing.T) {
	for _, mt := range Vocabulary() {
		flow := &recordingFlow{}
		outcome := Search(flow, testID, payloadWithType(mt, 0))

		require.Equal(t, OutcomeConfirm, outcome, "type %s", mt)
		require.Len(t, flow.confirms, 1, "type %s", mt)
		assert.Equal(t, confirmCall{testID, dissector.ConfidenceDPI}, flow.confirms[0])
		assert.Zero(t, flow.excludes)
		assert.Equal(t, testID, flow.current)
	}
}

func TestSearchUnknownTypeExcludes(t *testing.T) {
	for code := 0; code <= 0xFFFF; code++ {
		mt := MessageType(code)
		if mt.Known() {
			continue
		}
		flow := &recordingFlow{}
		outcome := Search(flow, testID, payloadWithType(mt, 0))
		if outcome != OutcomeExclude || flow.excludes != 1 || len(flow.confirms) != 0 {
			t.Fatalf("code %d: outcome=%s excludes=%d confirms=%d", code, outcome, flow.excludes, len(flow.confirms))
		}
	}
}

func TestSearchBoundaries(t *testing.T) {
	valid := payloadWithType(Commit, 0)

	flow := &recordingFlow{}
	assert.Equal(t, OutcomeExclude, Search(flow, testID, valid[:HeaderSize-1]))

	flow = &recordingFlow{}
	assert.Equal(t, OutcomeConfirm, Search(flow, testID, valid))

	garbage := append(append([]byte(nil), valid...), 0xFF, 0x00, 0x13, 0x37)
	flow = &recordingFlow{}
	assert.Equal(t, OutcomeConfirm, Search(flow, testID, garbage))
}

func TestSearchDoesNotOverwriteExistingDetection(t *testing.T) {
	flow := &recordingFlow{current: 7}

	outcome := Search(flow, testID, payloadWithType(Ping, 8))

	assert.Equal(t, OutcomeNoOp, outcome)
	assert.Empty(t, flow.confirms)
	assert.Zero(t, flow.excludes)
	assert.Equal(t, dissector.ProtocolID(7), flow.current)
}

func TestSearchIdempotentAfterConfirm(t *testing.T) {
	flow := &recordingFlow{}
	require.Equal(t, OutcomeConfirm, Search(flow, testID, payloadWithType(Handshake, 0)))

	// Further valid payloads must not confirm again.
	for _, mt := range []MessageType{Connect, DirectQuery, Commit} {
		assert.Equal(t, OutcomeNoOp, Search(flow, testID, payloadWithType(mt, 4)))
	}
	assert.Len(t, flow.confirms, 1)
	assert.Equal(t, testID, flow.current)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		current  dissector.ProtocolID
		expected Outcome
	}{
		{"short", ErrInsufficientData, dissector.ProtocolUnknown, OutcomeExclude},
		{"unknown type", ErrUnrecognizedMessageType, dissector.ProtocolUnknown, OutcomeExclude},
		{"known type unknown flow", nil, dissector.ProtocolUnknown, OutcomeConfirm},
		{"known type detected flow", nil, 3, OutcomeNoOp},
		{"short detected flow", ErrInsufficientData, 3, OutcomeExclude},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.err, tt.current))
		})
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "confirm", OutcomeConfirm.String())
	assert.Equal(t, "exclude", OutcomeExclude.String())
	assert.Equal(t, "noop", OutcomeNoOp.String())
}

type fakeRegistry struct {
	regs []dissector.Registration
	err  error
}

func (r *fakeRegistry) Register(reg dissector.Registration) error {
	if r.err != nil {
		return r.err
	}
	r.regs = append(r.regs, reg)
	return nil
}

func TestInit(t *testing.T) {
	reg := &fakeRegistry{}

	next, err := Init(reg, 11)
	require.NoError(t, err)
	assert.Equal(t, dissector.ProtocolID(12), next)

	require.Len(t, reg.regs, 1)
	r := reg.regs[0]
	assert.Equal(t, "IRIS", r.Name)
	assert.Equal(t, dissector.ProtocolID(11), r.ID)
	assert.Equal(t, dissector.SelectionV4V6TCPWithPayloadNoRetransmission, r.Selection)
	require.NotNil(t, r.Search)

	// The registered function confirms under the registered id.
	flow := &recordingFlow{}
	r.Search(flow, payloadWithType(Handshake, 0))
	require.Len(t, flow.confirms, 1)
	assert.Equal(t, dissector.ProtocolID(11), flow.confirms[0].id)
}

func TestInitRegistryError(t *testing.T) {
	boom := errors.New("duplicate")
	next, err := Init(&fakeRegistry{err: boom}, 11)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, dissector.ProtocolID(11), next)
}
