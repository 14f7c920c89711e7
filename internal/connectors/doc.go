// Package connectors holds the sources documents arrive from outside the
// CLI. The filesystem connector watches an inbox directory.
package connectors
