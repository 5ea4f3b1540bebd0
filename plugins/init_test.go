package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/otusdpi/pkg/dissector"
)

type collectingRegistry struct {
	regs []dissector.Registration
}

func (r *collectingRegistry) Register(reg dissector.Registration) error {
	r.regs = append(r.regs, reg)
	return nil
}

func TestRegisterAll(t *testing.T) {
	reg := &collectingRegistry{}

	next, err := RegisterAll(reg, 1, nil)
	require.NoError(t, err)

	assert.Equal(t, dissector.ProtocolID(1+len(Builtins)), next)
	require.Len(t, reg.regs, len(Builtins))
	for i, r := range reg.regs {
		assert.Equal(t, Builtins[i].Name, r.Name)
		assert.Equal(t, dissector.ProtocolID(1+i), r.ID)
	}
}

func TestRegisterAllSkipsDisabled(t *testing.T) {
	reg := &collectingRegistry{}

	next, err := RegisterAll(reg, 5, func(string) bool { return false })
	require.NoError(t, err)

	assert.Equal(t, dissector.ProtocolID(5), next)
	assert.Empty(t, reg.regs)
}
