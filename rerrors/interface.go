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

// Package rerrors is the core's error type: a numeric Code, a message and
// an optional parent chain, compatible with the standard errors.Is/errors.As.
// The name avoids colliding with the standard errors package, which every
// file in this module still imports for errors.Is/errors.As/errors.New.
//
// It is a direct descendant of a general-purpose error-code library, cut
// down to the reactor's own taxonomy (see Code): there is no message
// registry, no gin integration, no error pool. A Code already says
// everything a caller needs to branch on.
package rerrors

import "errors"

// Error is the error interface every reactor subsystem returns instead of a
// bare error, whenever the failure needs to carry a Code a caller can branch
// on.
type Error interface {
	error

	// Code returns the classification of this error.
	Code() Code

	// Fatal reports whether this error (by its own Code) should abort the
	// process. Equivalent to Code().Fatal().
	Fatal() bool

	// Parent returns the wrapped cause, or nil if there is none.
	Parent() error

	// Unwrap gives compatibility with errors.Is / errors.As.
	Unwrap() error
}

type rerr struct {
	code Code
	msg  string
	par  error
}

func (e *rerr) Error() string {
	if e.par == nil {
		return e.msg
	}
	return e.msg + ": " + e.par.Error()
}

func (e *rerr) Code() Code    { return e.code }
func (e *rerr) Fatal() bool   { return e.code.Fatal() }
func (e *rerr) Parent() error { return e.par }
func (e *rerr) Unwrap() error { return e.par }

// New builds an Error with the given Code, message and optional parent
// cause. Only the first parent is kept; pass an already-wrapped Error as
// parent to chain further back.
func New(code Code, msg string, parent ...error) Error {
	e := &rerr{code: code, msg: msg}
	for _, p := range parent {
		if p != nil {
			e.par = p
			break
		}
	}
	return e
}

// Is reports whether err is a rerrors.Error (possibly wrapped).
func Is(err error) bool {
	var e Error
	return errors.As(err, &e)
}

// As returns err as a rerrors.Error if it (or something it wraps) is one,
// and nil otherwise.
func As(err error) Error {
	var e Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// HasCode reports whether err is a rerrors.Error carrying the given Code.
func HasCode(err error, code Code) bool {
	e := As(err)
	return e != nil && e.Code() == code
}

// IsFatal reports whether err is a rerrors.Error whose Code is Fatal, i.e.
// Programmer or Configuration. A non-rerrors.Error is never fatal by this
// check — callers that need to treat unclassified errors as fatal must do
// so explicitly.
func IsFatal(err error) bool {
	e := As(err)
	return e != nil && e.Fatal()
}
