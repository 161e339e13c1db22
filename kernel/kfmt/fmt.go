// Package kfmt provides formatted output and panic support for the kernel
// packages. Output is buffered until a sink is registered so that messages
// emitted during early bring-up are not lost.
package kfmt

import (
	"bytes"
	"fmt"
	"io"
)

var (
	// earlyPrintBuffer stores Printf output emitted before the console or
	// any other sink has been registered.
	earlyPrintBuffer bytes.Buffer

	// outputSink is an io.Writer where Printf will send its output. If set
	// to nil, then the output will be redirected to the earlyPrintBuffer.
	outputSink io.Writer
)

// SetOutputSink sets the default target for calls to Printf to w and copies
// any data accumulated in the earlyPrintBuffer to it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
		earlyPrintBuffer.Reset()
	}
}

// Printf works like fmt.Printf but writes to the registered output sink. If
// no sink has been registered the output accumulates in an internal buffer
// until SetOutputSink is called.
func Printf(format string, args ...interface{}) {
	if outputSink == nil {
		fmt.Fprintf(&earlyPrintBuffer, format, args...)
		return
	}

	fmt.Fprintf(outputSink, format, args...)
}
