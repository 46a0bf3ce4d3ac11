// Package pack assembles the build configuration for a site.
//
// Assemble reads the page directory once, builds the base configuration
// (script entry, style rule chain, one page directive per template) and then
// adjusts it for the selected task:
//
//   - TaskDev injects styles at runtime, writes the bundle in place and
//     describes a hot-reloading dev server.
//   - TaskBuild extracts and minifies styles, lowers scripts, names output
//     files by content hash, splits shared code and registers the clean,
//     extract and copy-images plugins.
//   - TaskUnsupported leaves the base configuration untouched. It has no
//     output and cannot be built.
//
// The returned *Config is plain data plus plugins. Plugins never run during
// assembly; a runner calls Apply on each with its Compiler and fires the
// hooks they register.
package pack
