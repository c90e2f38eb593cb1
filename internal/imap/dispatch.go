package imap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mailtide/mailtide/internal/wire"
)

// Response is one correlated reply: the untagged units observed before
// the completion, the completion status, and the raw capture of the
// response unit.
type Response struct {
	Tag    int
	Status string
	Text   string
	Lines  []wire.List
	Raw    []byte
}

// OK reports whether the completion status was OK.
func (r *Response) OK() bool { return r.Status == "OK" }

// Send writes a tagged command to the stream and returns its tag
// without waiting for the reply. Tags are strictly increasing per
// session and never reused while outstanding.
func (s *Session) Send(format string, args ...any) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendLocked(format, args...)
}

func (s *Session) sendLocked(format string, args ...any) (int, error) {
	if s.closed {
		return 0, &TransportError{Server: s.server, Transport: s.transport, Err: io.ErrClosedPipe}
	}
	s.tag++
	cmd := fmt.Sprintf(format, args...)
	if _, err := s.bw.WriteString(strconv.Itoa(s.tag) + " " + cmd + s.eol); err != nil {
		s.closed = true
		return 0, &TransportError{Server: s.server, Transport: s.transport, Err: err}
	}
	if err := s.bw.Flush(); err != nil {
		s.closed = true
		return 0, &TransportError{Server: s.server, Transport: s.transport, Err: err}
	}
	verb, _, _ := strings.Cut(cmd, " ")
	s.outstanding[s.tag] = strings.ToUpper(verb)
	s.lastCmd = time.Now()
	s.logger.Debug("sent command", slog.Int("tag", s.tag), slog.String("verb", verb))
	return s.tag, nil
}

// Await blocks until the completion for tag has been observed or the
// stream closes or ctx's deadline passes. Completions are correlated
// strictly by tag, so tags may be awaited in any order regardless of the
// order the server finishes them in.
func (s *Session) Await(ctx context.Context, tag int) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaitLocked(ctx, tag)
}

func (s *Session) awaitLocked(ctx context.Context, tag int) (*Response, error) {
	for {
		if resp, ok := s.pending[tag]; ok {
			delete(s.pending, tag)
			return resp, nil
		}
		if s.closed {
			return nil, &TransportError{Server: s.server, Transport: s.transport, Err: io.ErrUnexpectedEOF}
		}
		line, err := s.readLogicalLine(ctx)
		if len(line) > 0 {
			s.captureAppend(line)
		}
		if err != nil {
			s.closed = true
			return nil, &TransportError{Server: s.server, Transport: s.transport, Err: err}
		}
		s.consumeUnit(line)
	}
}

// Run is the send+await+parse composition. A NO or BAD completion
// yields ok=false with the response carrying the server's status text;
// the session stays usable. The returned error is reserved for
// transport-level failures.
func (s *Session) Run(ctx context.Context, format string, args ...any) (bool, *Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runLocked(ctx, format, args...)
}

func (s *Session) runLocked(ctx context.Context, format string, args ...any) (bool, *Response, error) {
	tag, err := s.sendLocked(format, args...)
	if err != nil {
		return false, nil, err
	}
	resp, err := s.awaitLocked(ctx, tag)
	if err != nil {
		return false, nil, err
	}
	return resp.OK(), resp, nil
}

// readLogicalLine reads one physical line plus, when the line announces
// a trailing {N} literal, the N raw payload bytes and the continuation
// of the line after them. The result is one logical response line.
func (s *Session) readLogicalLine(ctx context.Context) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetReadDeadline(deadline)
		defer func() { _ = s.conn.SetReadDeadline(time.Time{}) }()
	}

	var buf []byte
	for {
		line, err := s.br.ReadBytes('\n')
		buf = append(buf, line...)
		if err != nil {
			return buf, err
		}
		n, ok := trailingLiteral(line)
		if !ok {
			return buf, nil
		}
		payload := make([]byte, n)
		read, err := io.ReadFull(s.br, payload)
		buf = append(buf, payload[:read]...)
		if err != nil {
			return buf, err
		}
	}
}

// trailingLiteral reports whether the line ends with a {N} literal
// announcement and returns N.
func trailingLiteral(line []byte) (int, bool) {
	trimmed := bytes.TrimRight(line, "\r\n")
	if len(trimmed) < 3 || trimmed[len(trimmed)-1] != '}' {
		return 0, false
	}
	open := bytes.LastIndexByte(trimmed, '{')
	if open < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(string(trimmed[open+1 : len(trimmed)-1]))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// consumeUnit folds one logical line into the session's reply state:
// untagged lines accumulate, a tagged completion binds the accumulated
// lines to its tag.
func (s *Session) consumeUnit(raw []byte) {
	trimmed := bytes.TrimRight(raw, "\r\n")
	if len(trimmed) == 0 {
		return
	}
	switch trimmed[0] {
	case '+':
		s.logger.Debug("ignoring continuation request", slog.String("server", s.server))
		return
	case '*':
		parsed, err := wire.Parse(wire.UnfoldLiterals(raw))
		if err != nil {
			s.logger.Warn("dropping malformed reply",
				slog.String("server", s.server), slog.Any("error", err))
			return
		}
		s.partial = append(s.partial, parsed)
		s.absorbCapAttrs(parsed)
		return
	}

	fields := strings.SplitN(string(trimmed), " ", 3)
	tag, err := strconv.Atoi(fields[0])
	if err != nil || len(fields) < 2 {
		s.logger.Warn("dropping unparseable completion",
			slog.String("server", s.server), slog.String("line", string(trimmed)))
		return
	}
	text := ""
	if len(fields) == 3 {
		text = fields[2]
	}
	resp := &Response{
		Tag:    tag,
		Status: strings.ToUpper(fields[1]),
		Text:   text,
		Lines:  s.partial,
		Raw:    wire.IsolateLastUnit(s.capture),
	}
	s.partial = nil
	if parsed, err := wire.Parse(trimmed); err == nil {
		s.absorbCapAttrs(parsed)
	}
	delete(s.outstanding, tag)
	s.pending[tag] = resp
}

// absorbCapAttrs picks up [CAPABILITY ...] response codes wherever they
// appear.
func (s *Session) absorbCapAttrs(parsed wire.List) {
	for _, tok := range parsed {
		attrs, ok := tok.(wire.AttrList)
		if !ok || len(attrs) == 0 || !strings.EqualFold(attrs[0], "CAPABILITY") {
			continue
		}
		for _, c := range attrs[1:] {
			s.caps[strings.ToUpper(c)] = true
		}
	}
}

// captureAppend retains received bytes for response-unit isolation. In
// high-throughput mode only a fixed trailing window is kept.
func (s *Session) captureAppend(b []byte) {
	s.capture = append(s.capture, b...)
	if s.window > 0 && len(s.capture) > s.window {
		s.capture = s.capture[len(s.capture)-s.window:]
	}
}

func atomAt(l wire.List, i int) wire.Atom {
	if i < len(l) {
		if a, ok := l[i].(wire.Atom); ok {
			return a
		}
	}
	return ""
}
