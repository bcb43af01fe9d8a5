package model

// OperationError records a rejected scenario step.
type OperationError struct {
	Step      int    `json:"step"`
	Slot      uint64 `json:"slot"`
	Operation string `json:"operation"`
	Class     string `json:"class"`
	Error     string `json:"error"`
}
