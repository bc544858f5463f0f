// Package app wires the instrument together: it loads the rig, registers
// the compiled driver and experiment modules, opens the hardware, and runs
// the requested experiments one after another. Experiments never run
// concurrently; they share one optical table.
package app
