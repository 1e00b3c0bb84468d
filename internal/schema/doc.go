// Package schema loads data models from CUE.
//
// A schema directory holds one CUE package with two top-level structs:
// "types" declares entity types with their properties, keys and navigation
// properties; "sets" declares the queryable entity sets, their tables,
// column mappings and navigation bindings. See Compile for the layout.
//
// Load reads a directory with the CUE SDK (no cue subprocess), compiles it
// and runs model.Validate. Errors carry E0xx/E1xx codes for loading and
// declaration faults and the model's E2xx codes for consistency faults.
package schema
