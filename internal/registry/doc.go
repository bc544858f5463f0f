// Package registry provides the central "glue" for the module system.
//
// The Registry stores mappings between the stable type identifiers used in
// rig files (e.g., "mock_camera", "fsrs_scan") and the compiled Go handlers
// that implement the driver or experiment. Registration happens at startup
// from a fixed list of compiled-in modules, so discovering a capability
// never depends on matching source filenames to type names.
//
// During application startup the registry is populated and then validated
// against the loaded rig so that a reference to an unknown type fails before
// any hardware is touched.
package registry
