package vmx

// Handle is the control-structure accessor boundary. A real monitor backs
// it with vmread/vmwrite and the cr2 register; the replay tool and the
// tests back it with MemVMCS.
type Handle interface {
	Read(f Field) (uint64, error)
	Write(f Field, v uint64) error

	// The fault-address register, used only when re-injecting page faults.
	ReadCR2() (uint64, error)
	WriteCR2(v uint64) error
}

// MemVMCS is an in-memory control structure. Unset fields read as zero,
// like freshly cleared hardware state.
type MemVMCS struct {
	fields map[Field]uint64
	cr2    uint64
}

func NewMemVMCS() *MemVMCS {
	return &MemVMCS{fields: map[Field]uint64{}}
}

func (m *MemVMCS) Read(f Field) (uint64, error) {
	return m.fields[f], nil
}

func (m *MemVMCS) Write(f Field, v uint64) error {
	m.fields[f] = v

	return nil
}

func (m *MemVMCS) ReadCR2() (uint64, error) {
	return m.cr2, nil
}

func (m *MemVMCS) WriteCR2(v uint64) error {
	m.cr2 = v

	return nil
}
