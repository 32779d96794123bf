package nntp

import (
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
)

// fakeGroup is the server-side state of one newsgroup.
type fakeGroup struct {
	count, low, high int64
	overview         []string
	bodies           map[int64][]string
}

// fakeServer speaks just enough NNTP for session tests: greeting, optional
// AUTHINFO, LIST, GROUP, XOVER, BODY, CAPABILITIES and QUIT.
type fakeServer struct {
	ln       net.Listener
	username string
	password string
	catalog  []string
	groups   map[string]*fakeGroup
}

func startFakeServer(t *testing.T, srv *fakeServer) (host string, port int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv.ln = ln
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go srv.serve(conn)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

func (srv *fakeServer) serve(conn net.Conn) {
	defer conn.Close()
	text := textproto.NewConn(conn)
	defer text.Close()

	text.PrintfLine("200 fake server ready")

	authed := srv.username == ""
	var pendingUser string
	var current *fakeGroup

	for {
		line, err := text.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.Fields(line)
		if len(cmd) == 0 {
			text.PrintfLine("500 what?")
			continue
		}

		switch strings.ToUpper(cmd[0]) {
		case "AUTHINFO":
			if len(cmd) < 3 {
				text.PrintfLine("501 syntax error")
				continue
			}
			switch strings.ToUpper(cmd[1]) {
			case "USER":
				pendingUser = cmd[2]
				text.PrintfLine("381 password required")
			case "PASS":
				if pendingUser == srv.username && cmd[2] == srv.password {
					authed = true
					text.PrintfLine("281 authentication accepted")
				} else {
					text.PrintfLine("481 authentication failed")
				}
			default:
				text.PrintfLine("501 syntax error")
			}

		case "LIST":
			if !authed {
				text.PrintfLine("480 authentication required")
				continue
			}
			text.PrintfLine("215 list of newsgroups follows")
			for _, l := range srv.catalog {
				text.PrintfLine("%s", l)
			}
			text.PrintfLine(".")

		case "GROUP":
			if len(cmd) < 2 {
				text.PrintfLine("501 syntax error")
				continue
			}
			g, ok := srv.groups[cmd[1]]
			if !ok {
				text.PrintfLine("411 no such newsgroup")
				continue
			}
			current = g
			text.PrintfLine("211 %d %d %d %s", g.count, g.low, g.high, cmd[1])

		case "XOVER":
			// The range filter is ignored; tests script the overview lines.
			if current == nil {
				text.PrintfLine("412 no newsgroup selected")
				continue
			}
			text.PrintfLine("224 overview follows")
			for _, l := range current.overview {
				text.PrintfLine("%s", l)
			}
			text.PrintfLine(".")

		case "BODY":
			if current == nil {
				text.PrintfLine("412 no newsgroup selected")
				continue
			}
			num, _ := strconv.ParseInt(cmd[1], 10, 64)
			body, ok := current.bodies[num]
			if !ok {
				text.PrintfLine("430 no such article")
				continue
			}
			text.PrintfLine("222 %d body follows", num)
			for _, l := range body {
				text.PrintfLine("%s", l)
			}
			text.PrintfLine(".")

		case "CAPABILITIES":
			text.PrintfLine("101 capability list follows")
			text.PrintfLine("VERSION 2")
			text.PrintfLine("READER")
			text.PrintfLine(".")

		case "QUIT":
			text.PrintfLine("205 bye")
			return

		default:
			text.PrintfLine("500 unknown command")
		}
	}
}
