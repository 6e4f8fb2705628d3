// Package logger provides leveled, colored logging for kahu.
//
// # Verbosity Levels
//
//   - --verbose: Shows info messages
//   - --debug: Shows all messages including debug details
//
// Warnings and errors are always written to the error stream.
//
// # Usage
//
//	log := Logger{Verbose: verbose, Debug: debug}
//	log.Infof("Loaded %d profiles", count)
//
// Components in internal/ receive a Logger at construction. The zero value
// is usable and only prints warnings and errors.
package logger
