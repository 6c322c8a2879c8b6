// Package output is responsible for writing logs and the established
// connection details.
package output

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
)

// Writer is an interface for writing output.
type Writer interface {
	io.Writer
	io.StringWriter
}

// Output is responsible for all the output, be it logging or writing received
// data.
type Output struct {
	dataFileWriter Writer
	logFileWriter  Writer
	verbose        bool
	jsonOutput     bool
}

// NewOutput creates a new instance of Output. path is an optional path to the
// file where the tool will write the received data. If not specified, this
// information will be written to stdout. verbose defines whether we need to
// write extended information. jsonOutput defines whether the result and the
// errors should be formatted as JSON.
func NewOutput(path string, verbose bool, jsonOutput bool) (o *Output, err error) {
	var dataWriter, logWriter Writer
	dataWriter = os.Stdout
	logWriter = os.Stderr

	if path != "" {
		dataWriter, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, err
		}
	}

	return NewOutputWithWriters(dataWriter, logWriter, verbose, jsonOutput), nil
}

// NewOutputWithWriters creates a new instance of Output, using the provided
// dataWriter and logWriter for output and logging respectively. verbose
// defines whether we need to write extended information. jsonOutput defines
// whether the result and the errors should be formatted as JSON.
func NewOutputWithWriters(dataWriter Writer, logWriter Writer, verbose bool, jsonOutput bool) (o *Output) {
	return &Output{
		dataFileWriter: dataWriter,
		logFileWriter:  logWriter,
		verbose:        verbose,
		jsonOutput:     jsonOutput,
	}
}

// Result describes an established connection or a bound socket and the data
// received through it.
type Result struct {
	// Mode is either "connect" or "listen".
	Mode string `json:"mode"`

	// Network is the network of the socket, e.g. "udp4".
	Network string `json:"network"`

	// Endpoint is the endpoint the socket was connected or bound to.
	Endpoint string `json:"endpoint"`

	// Local is the local address of the socket.
	Local string `json:"local"`

	// Peer is the address the received data came from.
	Peer string `json:"peer,omitempty"`

	// Received is the data received through the socket.
	Received []byte `json:"-"`

	// ReceivedBase64 is Received in base64, it is only used in JSON.
	ReceivedBase64 string `json:"received_base64,omitempty"`
}

// Write writes the result to the output path (or stdout if not specified).
func (o *Output) Write(res *Result) {
	var err error

	if o.jsonOutput {
		var b []byte
		b, err = resultToJSON(res)
		if err != nil {
			panic(err)
		}

		_, err = o.dataFileWriter.Write(append(b, '\n'))
	} else {
		o.Info("%s %s %s (local %s)", res.Mode, res.Network, res.Endpoint, res.Local)
		if res.Peer != "" {
			o.Info("Received %d bytes from %s", len(res.Received), res.Peer)
		}

		_, err = o.dataFileWriter.Write(res.Received)
	}

	if err != nil {
		msg := fmt.Sprintf("Failed to write result: %v", err)
		_, _ = o.logFileWriter.WriteString(msg + "\n")
	}
}

// Info writes INFO-level log to the log file (or stderr).
func (o *Output) Info(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	_, err := o.logFileWriter.WriteString(msg + "\n")
	if err != nil {
		panic(err)
	}
}

// Error writes an error message. If jsonOutput is enabled, it formats the
// error as JSON and writes it to the dataFileWriter (stdout by default).
// Otherwise, it writes a plain text error to stderr.
func (o *Output) Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	if o.jsonOutput {
		// Write error as JSON to the output file (stdout by default)
		errorJSON := map[string]string{"error": msg}
		b, err := json.MarshalIndent(errorJSON, "", "  ")
		if err != nil {
			panic(err)
		}
		_, err = o.dataFileWriter.Write(b)
		if err != nil {
			panic(err)
		}
		_, err = o.dataFileWriter.WriteString("\n")
		if err != nil {
			panic(err)
		}
	} else {
		// Write plain text error to stderr
		_, err := o.logFileWriter.WriteString(msg + "\n")
		if err != nil {
			panic(err)
		}
	}
}

// Debug writes DEBUG-level log to stderr (controlled by the verbose flag).
func (o *Output) Debug(format string, args ...any) {
	if !o.verbose {
		return
	}

	_, err := o.logFileWriter.WriteString(fmt.Sprintf(format, args...) + "\n")
	if err != nil {
		panic(err)
	}
}

// resultToJSON transforms the result to JSON format.
func resultToJSON(res *Result) (b []byte, err error) {
	data := *res
	if len(data.Received) > 0 {
		data.ReceivedBase64 = base64.StdEncoding.EncodeToString(data.Received)
	}

	return json.MarshalIndent(data, "", "  ")
}
