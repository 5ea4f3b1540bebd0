// Package plugins bootstraps the built-in protocol dissectors.
package plugins

import (
	"firestige.xyz/otusdpi/pkg/dissector"
	"firestige.xyz/otusdpi/plugins/dissector/iris"
)

// Builtin describes a dissector compiled into the binary.
type Builtin struct {
	Name string
	Init dissector.InitFunc
}

// Builtins lists the dissectors in registration order. Order decides the ids
// they receive and the order the engine tries them in.
var Builtins = []Builtin{
	{Name: iris.Name, Init: iris.Init},
	// More dissectors will be registered here as they are implemented
}

// RegisterAll registers every enabled builtin starting at id first and
// returns the next free id. A nil enabled registers everything.
func RegisterAll(reg dissector.Registry, first dissector.ProtocolID, enabled func(name string) bool) (dissector.ProtocolID, error) {
	next := first
	for _, b := range Builtins {
		if enabled != nil && !enabled(b.Name) {
			continue
		}
		var err error
		if next, err = b.Init(reg, next); err != nil {
			return next, err
		}
	}
	return next, nil
}
