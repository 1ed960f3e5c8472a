package pex

import "fmt"

// UserFlag names one bit of the user flag masks carried by objects,
// variables, properties, functions and struct members.
type UserFlag struct {
	Name *TString
	Bit  uint8
}

// Mask returns the flag's bit as a mask.
func (f UserFlag) Mask() uint32 {
	if f.Bit >= 32 {
		return 0
	}
	return 1 << f.Bit
}

func readUserFlag(r *reader) (UserFlag, error) {
	name, err := r.ref()
	if err != nil {
		return UserFlag{}, fmt.Errorf("name: %w", err)
	}
	bit, err := r.u8()
	if err != nil {
		return UserFlag{}, fmt.Errorf("bit of %s: %w", name, err)
	}
	return UserFlag{Name: name, Bit: bit}, nil
}

func (f UserFlag) encode(w *writer) {
	w.ref(f.Name)
	w.u8(f.Bit)
}
