package domain

// SKU is a distinct sellable product definition. Reference data: loaded
// once and never mutated by the engine.
type SKU struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	MOQ  int    `json:"moq,omitempty"`
}

// MinOrderQty returns the supplier minimum order quantity, falling back
// to 1 when the SKU carries none.
func (s SKU) MinOrderQty() int {
	if s.MOQ > 0 {
		return s.MOQ
	}
	return 1
}

// Store is a physical retail location. Reference data.
type Store struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
