/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

package rerrors

// Code classifies an Error the way the reactor's callers need to branch on
// it: by the outcome it demands, not by subsystem. It is deliberately a
// closed, small set rather than an HTTP-style open range.
type Code uint8

const (
	// Unknown is the zero value, used only when wrapping a foreign error
	// that carries no classification of its own.
	Unknown Code = iota

	// Transient marks a syscall that failed in a way the caller should
	// retry or ignore: EINTR, ECONNABORTED, EAGAIN/EWOULDBLOCK surfaced
	// outside the poll/read fast path.
	Transient

	// DescriptorExhaustion marks EMFILE/ENFILE during accept.
	DescriptorExhaustion

	// PeerClosed marks an orderly peer shutdown (EOF on read, or a
	// zero-length readv).
	PeerClosed

	// PeerReset marks ECONNRESET/EPIPE on write, or a TCP RST observed on
	// read.
	PeerReset

	// Programmer marks a violated internal invariant: a call off the
	// loop thread where on-loop was required, a channel event on an fd
	// no longer registered, a double-close. Always Fatal.
	Programmer

	// Configuration marks a rejected config.Server/config.Client value.
	// Always Fatal.
	Configuration

	// ConnectRejected marks a failed outbound connect attempt (ECONNREFUSED,
	// ETIMEDOUT, network unreachable) surfaced by the connector's retry loop.
	ConnectRejected
)

func (c Code) String() string {
	switch c {
	case Transient:
		return "transient"
	case DescriptorExhaustion:
		return "descriptor-exhaustion"
	case PeerClosed:
		return "peer-closed"
	case PeerReset:
		return "peer-reset"
	case Programmer:
		return "programmer"
	case Configuration:
		return "configuration"
	case ConnectRejected:
		return "connect-rejected"
	}
	return "unknown"
}

// Fatal reports whether an Error of this Code should abort the process
// rather than be handled by a callback. Only Programmer and Configuration
// errors are fatal; every other code is a condition the loop or connection
// state machine is expected to recover from or surface to the user.
func (c Code) Fatal() bool {
	return c == Programmer || c == Configuration
}
