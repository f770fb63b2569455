// Package descriptor reads and writes repository release descriptors.
//
// A descriptor declares the repository's own version and the versions of the sibling
// repositories it consumes. ReaderWriter is the capability the release engine depends
// on; YAMLDescriptor implements it for YAML files of the form
//
//	version: 1.2.0
//	dependencies:
//	  alpha: 1.1.0
//
// Writes edit the parsed document in place so comments and unrelated keys survive, and
// replace the file atomically through a temporary file in the same directory.
package descriptor
