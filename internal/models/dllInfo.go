package models

// DLLInfo records which script extender entry points a DLL exports.
type DLLInfo struct {
	IsF4SE     bool  `json:"isF4SE"`
	SupportsOG *bool `json:"supportsOG,omitempty"`
	SupportsNG *bool `json:"supportsNG,omitempty"`
}
