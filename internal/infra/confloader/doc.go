// Package confloader loads layered configuration with koanf.
//
// Sources, later ones overriding earlier ones:
//
//  1. Defaults already present in the target struct
//  2. A YAML configuration file
//  3. Environment variables (PIXELSYNC_ prefix)
//  4. Explicit overrides, typically command-line flags
//
// Environment keys map to config keys by lowercasing and turning a double
// underscore into a level separator, so PIXELSYNC_STORAGE__DATA_DIR sets
// storage.data_dir.
//
// Watcher reports changes to the configuration file so the server can
// apply reloadable settings (the log level) without a restart.
package confloader
