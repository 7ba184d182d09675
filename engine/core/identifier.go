package core

import "fmt"

// IdentifierPool hands out small integer ids, reusing released slots before
// growing. Not safe for concurrent use.
type IdentifierPool struct {
	owners []interface{}
}

func NewIdentifierPool(capacity int) *IdentifierPool {
	return &IdentifierPool{
		owners: make([]interface{}, 0, capacity),
	}
}

func (p *IdentifierPool) Acquire(owner interface{}) uint32 {
	length := uint32(len(p.owners))
	for i := uint32(0); i < length; i++ {
		// Existing free spot. Take it.
		if p.owners[i] == nil {
			p.owners[i] = owner
			return i
		}
	}

	// If here, no existing free slots. Need a new id, so push one.
	// This means the id will be length - 1
	p.owners = append(p.owners, owner)
	return uint32(len(p.owners)) - 1
}

func (p *IdentifierPool) Release(id uint32) error {
	if len(p.owners) == 0 {
		return fmt.Errorf("identifier release called before any acquire, id '%d' was not released", id)
	}

	length := uint32(len(p.owners))
	if id >= length {
		return fmt.Errorf("identifier release: id '%d' out of range (max=%d), nothing was done", id, length-1)
	}
	if p.owners[id] == nil {
		return fmt.Errorf("identifier release: id '%d' is not in use", id)
	}

	// Just zero out the entry, making it available for use.
	p.owners[id] = nil
	return nil
}

// Owner returns whatever was registered for the id, nil when the slot is free.
func (p *IdentifierPool) Owner(id uint32) interface{} {
	if id >= uint32(len(p.owners)) {
		return nil
	}
	return p.owners[id]
}

// InUse counts the slots currently taken.
func (p *IdentifierPool) InUse() int {
	n := 0
	for _, o := range p.owners {
		if o != nil {
			n++
		}
	}
	return n
}

// Reset frees every slot.
func (p *IdentifierPool) Reset() {
	p.owners = p.owners[:0]
}
