package models

// ModuleFlag is the flags field at offset 8 of a module (plugin) header.
type ModuleFlag uint32

const (
	ModuleFlagLight ModuleFlag = 0x0200
)

func (f ModuleFlag) Has(flag ModuleFlag) bool {
	return f&flag != 0
}
