package coherence

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
)

// DirectoryCommand is a control command exchanged with a coherence
// directory.
type DirectoryCommand uint8

// Directory commands.
const (
	DirGet DirectoryCommand = iota
	DirFound
	DirSet
	DirLock
	DirAcquired
	DirUnlock
	DirSquash

	numDirectoryCommands
)

var directoryCommandNames = [numDirectoryCommands]string{
	DirGet:      "GetEntry",
	DirFound:    "EntryRetrieved",
	DirSet:      "SetEntry",
	DirLock:     "LockRequest",
	DirAcquired: "LockAcquired",
	DirUnlock:   "UnlockRequest",
	DirSquash:   "SquashPending",
}

func (c DirectoryCommand) String() string {
	if c >= numDirectoryCommands {
		return fmt.Sprintf("DirectoryCommand(%d)", uint8(c))
	}

	return directoryCommandNames[c]
}

// DirectoryMessage carries a directory command and the address it applies
// to.
type DirectoryMessage struct {
	sim.MsgMeta

	Command DirectoryCommand
	Address uint64
}

// NewDirectoryMessage creates a directory message between two ports.
func NewDirectoryMessage(
	src, dst sim.RemotePort,
	cmd DirectoryCommand,
	addr uint64,
) *DirectoryMessage {
	m := &DirectoryMessage{
		Command: cmd,
		Address: addr,
	}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = src
	m.Dst = dst
	m.TrafficClass = "coherence.DirectoryMessage"
	m.TrafficBytes = controlByteOverhead

	return m
}

// Meta returns the message meta.
func (m *DirectoryMessage) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the message with a new ID.
func (m *DirectoryMessage) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

func (m *DirectoryMessage) String() string {
	return fmt.Sprintf("DirMsg: op=%s addr=0x%x", m.Command, m.Address)
}
