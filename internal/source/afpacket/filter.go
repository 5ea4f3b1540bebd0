package afpacket

import (
	"golang.org/x/net/bpf"
)

const (
	etherTypeIPv4 = 0x0800
	etherTypeIPv6 = 0x86dd
	ipProtoTCP    = 6
	ipProtoUDP    = 17
)

// transportFilter returns a classic BPF program that keeps untagged Ethernet
// frames carrying TCP or UDP over IPv4 or IPv6, truncated to snapLen. IPv6
// extension headers are not walked, so only a TCP or UDP next header passes.
func transportFilter(snapLen int) []bpf.Instruction {
	return []bpf.Instruction{
		/* 0 */ bpf.LoadAbsolute{Off: 12, Size: 2},
		/* 1 */ bpf.JumpIf{Cond: bpf.JumpEqual, Val: etherTypeIPv4, SkipFalse: 2},
		/* 2 */ bpf.LoadAbsolute{Off: 14 + 9, Size: 1},
		/* 3 */ bpf.Jump{Skip: 2},
		/* 4 */ bpf.JumpIf{Cond: bpf.JumpEqual, Val: etherTypeIPv6, SkipFalse: 4},
		/* 5 */ bpf.LoadAbsolute{Off: 14 + 6, Size: 1},
		/* 6 */ bpf.JumpIf{Cond: bpf.JumpEqual, Val: ipProtoTCP, SkipTrue: 1},
		/* 7 */ bpf.JumpIf{Cond: bpf.JumpEqual, Val: ipProtoUDP, SkipFalse: 1},
		/* 8 */ bpf.RetConstant{Val: uint32(snapLen)},
		/* 9 */ bpf.RetConstant{Val: 0},
	}
}

// assembleFilter assembles transportFilter for SetBPF.
func assembleFilter(snapLen int) ([]bpf.RawInstruction, error) {
	return bpf.Assemble(transportFilter(snapLen))
}
