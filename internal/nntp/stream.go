package nntp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mikey/usenet-explorer/internal/core"
)

// catalogStream pages through a LIST enumeration. A short page signals
// exhaustion; reading past exhaustion returns empty pages.
type catalogStream struct {
	session *Session
	ctx     context.Context
	done    bool
}

func (cs *catalogStream) Exhausted() bool { return cs.done }

func (cs *catalogStream) Next(n int) ([]core.NewsgroupEntry, error) {
	if cs.done {
		return nil, nil
	}
	if n <= 0 {
		n = 1
	}

	var page []core.NewsgroupEntry
	for len(page) < n {
		cs.session.setDeadline(cs.ctx)
		line, err := cs.session.text.ReadLine()
		if err != nil {
			cs.done = true
			return nil, cs.session.fail("LIST stream", err)
		}
		if line == "." {
			cs.done = true
			cs.session.streaming = false
			break
		}

		// "group high low flag"; malformed lines are skipped, not fatal.
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		high, err1 := strconv.ParseInt(fields[1], 10, 64)
		low, err2 := strconv.ParseInt(fields[2], 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		page = append(page, core.NewsgroupEntry{
			Name: fields[0],
			High: high,
			Low:  low,
			Flag: fields[3],
		})
	}
	return page, nil
}

// overviewStream lazily yields XOVER lines as message headers in the
// scanner idiom. It must be drained or aborted before the owning session
// issues another command.
type overviewStream struct {
	session *Session
	ctx     context.Context
	group   string
	cur     core.MessageHeader
	err     error
	done    bool
}

func (os *overviewStream) Header() core.MessageHeader { return os.cur }

func (os *overviewStream) Err() error { return os.err }

func (os *overviewStream) Next() bool {
	if os.done || os.err != nil {
		return false
	}
	for {
		os.session.setDeadline(os.ctx)
		line, err := os.session.text.ReadLine()
		if err != nil {
			os.done = true
			os.err = os.session.fail("XOVER stream", err)
			return false
		}
		if line == "." {
			os.done = true
			os.session.streaming = false
			return false
		}

		h, ok := parseOverviewLine(line, os.group)
		if !ok {
			// Malformed overview line: skip the article, keep the stream.
			continue
		}
		os.cur = h
		return true
	}
}

// Abort discards the rest of the stream. The connection is left mid-reply,
// so the session is poisoned and must be discarded.
func (os *overviewStream) Abort() error {
	if os.done {
		return nil
	}
	os.done = true
	os.session.streaming = false
	os.session.poisoned = true
	return nil
}

// parseOverviewLine decodes one XOVER response line:
// number<TAB>subject<TAB>from<TAB>date<TAB>message-id<TAB>references<TAB>bytes<TAB>lines
func parseOverviewLine(line, group string) (core.MessageHeader, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < 6 {
		return core.MessageHeader{}, false
	}
	num, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return core.MessageHeader{}, false
	}

	messageID := strings.TrimSpace(fields[4])
	if messageID == "" {
		messageID = fmt.Sprintf("<%d@%s>", num, group)
	}

	return core.MessageHeader{
		Number:     num,
		Subject:    fields[1],
		From:       fields[2],
		RawDate:    fields[3],
		Date:       ParseDate(fields[3]),
		MessageID:  messageID,
		References: strings.Fields(fields[5]),
		Group:      group,
	}, true
}
