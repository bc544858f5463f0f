// Package config defines the format-agnostic model of a rig file and the
// interfaces a configuration format has to implement to produce it. The
// concrete HCL implementation lives in internal/hclcfg.
package config
