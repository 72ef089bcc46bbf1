// Package progressui renders batch progress for the command line: a
// progress bar when stderr is a terminal, periodic plain lines otherwise.
package progressui
