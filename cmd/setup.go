package cmd

import (
	"fmt"

	"firestige.xyz/otusdpi/internal/config"
	"firestige.xyz/otusdpi/internal/engine"
	"firestige.xyz/otusdpi/internal/log"
	"firestige.xyz/otusdpi/plugins"
)

// firstProtocolID is the id handed to the first builtin dissector.
const firstProtocolID = 1

// newRegistry registers every builtin dissector the engine config enables.
func newRegistry(ec config.EngineConfig) (*engine.Registry, error) {
	reg := engine.NewRegistry()
	enabled := func(name string) bool {
		opts, err := ec.DissectorOptions(name)
		if err != nil {
			log.GetLogger().WithError(err).WithField("dissector", name).Warn("invalid dissector options, disabling")
			return false
		}
		return opts.Enabled
	}
	if _, err := plugins.RegisterAll(reg, firstProtocolID, enabled); err != nil {
		return nil, fmt.Errorf("register dissectors: %w", err)
	}
	if len(reg.List()) == 0 {
		log.GetLogger().Warn("no dissectors enabled, every flow will stay unknown")
	}
	return reg, nil
}

// newEngine builds an engine over reg, forwarding expired flows to onExpire.
func newEngine(reg *engine.Registry, ec config.EngineConfig, onExpire func(engine.FlowSummary)) *engine.Engine {
	opts := engine.OptionsFromConfig(ec)
	opts.OnExpire = onExpire
	return engine.New(reg, opts)
}
