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

package logger

import (
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

type lgr struct {
	mu    sync.RWMutex
	lr    *logrus.Logger
	lvl   Level
	out   OutputFunc
	flush FlushFunc
}

func (l *lgr) SetLevel(lvl Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lvl = lvl
	l.lr.SetLevel(lvl.Logrus())
}

func (l *lgr) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lvl
}

func (l *lgr) SetOutput(fn OutputFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = fn
}

func (l *lgr) SetFlush(fn FlushFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flush = fn
}

func (l *lgr) log(lvl Level, format string, args ...any) {
	l.mu.RLock()
	cur, out := l.lvl, l.out
	l.mu.RUnlock()

	if lvl < cur {
		return
	}

	msg := fmt.Sprintf(format, args...)

	if out != nil {
		out(lvl, msg)
		return
	}

	l.lr.WithField("level", lvl.String()).Log(lvl.Logrus(), msg)
}

func (l *lgr) Tracef(format string, args ...any) { l.log(TraceLevel, format, args...) }
func (l *lgr) Debugf(format string, args ...any) { l.log(DebugLevel, format, args...) }
func (l *lgr) Infof(format string, args ...any)  { l.log(InfoLevel, format, args...) }
func (l *lgr) Warnf(format string, args ...any)  { l.log(WarnLevel, format, args...) }
func (l *lgr) Errorf(format string, args ...any) { l.log(ErrorLevel, format, args...) }

func (l *lgr) Fatalf(format string, args ...any) {
	l.log(FatalLevel, format, args...)

	l.mu.RLock()
	flush := l.flush
	l.mu.RUnlock()

	if flush != nil {
		flush()
	}

	os.Exit(1)
}
