package spiflash

// BusIn is the master-driven half of a bus transaction: a strobe within
// an active cycle, a word address into the flash region, and the write
// signals. The flash region is read-only through the memory-mapped path,
// so write transactions complete with an acknowledge but have no effect;
// mutation goes through the bit-bang bridge.
type BusIn struct {
	Stb   bool
	Cyc   bool
	We    bool
	Addr  uint32 // word address
	WData uint32
}

// BusOut is the controller-driven half: read data and the acknowledge,
// which is high for exactly one tick per accepted strobe.
type BusOut struct {
	Ack   bool
	RData uint32
}

type seqState int

const (
	seqIdle seqState = iota // no transaction in flight
	seqBusy                 // transaction accepted, engine working
	seqAck                  // acknowledge tick
)

// sequencer arbitrates a single in-flight bus transaction. A strobe is
// accepted only when idle; the word address is resolved to a flash byte
// address at acceptance and held for the engine. Once the engine reports
// readiness the acknowledge is asserted exactly one tick later, and the
// sequencer is ready for the next strobe the tick after that.
//
// If the master deasserts cycle-active before readiness, the in-flight
// transaction still runs to completion; there is no abort path. The
// design assumes a single well-behaved bus master.
type sequencer struct {
	state seqState
	addr  uint32 // resolved flash byte address of the accepted transaction
	ack   bool
}

func (s *sequencer) reset() {
	s.state = seqIdle
	s.ack = false
}

// step advances the sequencer one tick. ready is the engine's readiness
// as of the end of the previous tick, which places the acknowledge
// exactly one tick after readiness.
func (s *sequencer) step(in BusIn, flashAddr uint32, ready bool) {
	switch s.state {
	case seqIdle:
		s.ack = false
		if in.Stb && in.Cyc {
			s.addr = flashAddr
			s.state = seqBusy
		}
	case seqBusy:
		if ready {
			s.ack = true
			s.state = seqAck
		}
	case seqAck:
		s.ack = false
		s.state = seqIdle
	}
}

// valid reports whether a transaction is in flight, which is the validity
// strobe presented to the read engine.
func (s *sequencer) valid() bool { return s.state == seqBusy }
