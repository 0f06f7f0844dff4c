package semantic

// Core is the set of services that semantic actions need from the
// out-of-order core that owns them.
type Core interface {
	// RegisterReady reports whether reg holds a produced value. When it does
	// not, the core must call Satisfy(a, 0) on the graph once it does.
	RegisterReady(reg Reg, a ActionID) bool

	// ReadRegister returns the value of a ready register.
	ReadRegister(reg Reg) uint64

	// WriteRegister publishes the value of a register and wakes its readers.
	WriteRegister(reg Reg, value uint64)

	// Bypass forwards a value to the consumers of reg before writeback.
	Bypass(reg Reg, value uint64)

	// Execute starts a compute action on a functional unit. The core calls
	// Finish on the graph when the result is due.
	Execute(a ActionID, fu FUClass)

	// ResolveAddress hands the effective address of a memory instruction to
	// the load/store queue.
	ResolveAddress(inst InstID, addr uint64)

	// ResolveStoreValue hands the data of a store to the load/store queue.
	ResolveStoreValue(inst InstID, value uint64)

	// RetrieveLoadValue returns the value delivered for a load.
	RetrieveLoadValue(inst InstID) uint64

	// RetrieveExtendedLoadValue returns the old memory value delivered for
	// an atomic.
	RetrieveExtendedLoadValue(inst InstID) uint64

	// ResolveBranch reports the outcome of a branch.
	ResolveBranch(inst InstID, taken bool, target uint64)
}
