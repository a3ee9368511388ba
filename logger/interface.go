/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package logger is the core's only concession to the logging subsystem
// named as an out-of-scope external collaborator in the specification: a
// thin, pluggable sink the reactor writes structured lines through, not a
// logging framework in its own right. File rotation, syslog, and the other
// machinery a production logger needs live outside this package entirely.
package logger

import "github.com/sirupsen/logrus"

// OutputFunc receives one formatted log line. FlushFunc is called before the
// process aborts on a Fatal entry. Both are injectable, mirroring the
// reactor's upstream Logging::setOutput/setFlush seam.
type OutputFunc func(lvl Level, msg string)
type FlushFunc func()

// Logger is the structured logging surface every reactor subsystem writes
// through. A single package-level instance (see Default) is shared by the
// loop, channel, poller, timer queue, acceptor, connector and connection.
type Logger interface {
	SetLevel(lvl Level)
	GetLevel() Level

	SetOutput(fn OutputFunc)
	SetFlush(fn FlushFunc)

	Tracef(format string, args ...any)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	// Fatalf logs at FatalLevel, flushes, then aborts the process.
	Fatalf(format string, args ...any)
}

// New returns a Logger backed by logrus, with output routed to the standard
// logrus handler until SetOutput overrides it.
func New() Logger {
	l := &lgr{lr: logrus.New()}
	l.SetLevel(InfoLevel)
	return l
}

// Default is the package-wide logger instance every reactor component logs
// through, matching muduo's single global Logger.
var Default Logger = New()
