// Package registry maps module names to module instances and resolves
// dotted "module.method" addresses to bound callables.
//
// The callable table for a module is built once, at registration, by
// reflecting over its exported methods; resolution afterwards is a pure
// map lookup with no side effects.
package registry
