package logger

import (
	"fmt"
	"io"
	"log"
	"os"
)

var (
	console io.Writer = os.Stderr
	file    *log.Logger
	closer  io.Closer
	quiet   bool
)

// Init mirrors every message to filename (appending) when it is not empty.
func Init(filename string) error {
	if filename == "" {
		return nil
	}
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}

	file = log.New(f, "", log.LstdFlags)
	closer = f
	return nil
}

// Close releases the log file opened by Init.
func Close() error {
	if closer == nil {
		return nil
	}
	err := closer.Close()
	file, closer = nil, nil
	return err
}

// SetOutput redirects console messages.
func SetOutput(w io.Writer) {
	console = w
}

// SetQuiet suppresses Info messages on the console.
func SetQuiet(q bool) {
	quiet = q
}

// Info reports progress: [*]
func Info(format string, v ...interface{}) {
	emit("[*]", !quiet, format, v...)
}

// Success reports a completed step: [+]
func Success(format string, v ...interface{}) {
	emit("[+]", true, format, v...)
}

// Warn reports a problem that does not stop the run: [!]
func Warn(format string, v ...interface{}) {
	emit("[!]", true, format, v...)
}

func emit(prefix string, show bool, format string, v ...interface{}) {
	msg := prefix + " " + fmt.Sprintf(format, v...)
	if show {
		fmt.Fprintln(console, msg)
	}
	if file != nil {
		file.Print(msg)
	}
}
