package core

// ModuleID is a dotted, namespaced module identifier such as
// "channel.matrix" or "integration.weather".
type ModuleID string

// Namespace returns the part of the ID before the first dot.
func (id ModuleID) Namespace() string {
	for i := 0; i < len(id); i++ {
		if id[i] == '.' {
			return string(id[:i])
		}
	}
	return string(id)
}

// ModuleInfo describes a registered module and how to instantiate it.
type ModuleInfo struct {
	ID  ModuleID
	New func() Module
}

// Module is the minimal interface every catbot module implements.
type Module interface {
	ModuleInfo() ModuleInfo
}
