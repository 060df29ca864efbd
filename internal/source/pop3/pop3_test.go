package pop3

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/inboxpeek/internal/mailbox"
	"github.com/nhle/inboxpeek/internal/source"
)

type fakeMessage struct {
	uid string
	raw string
}

// serveFakePOP3 answers the subset of POP3 the adapter uses, for a
// single mailbox owned by user/pass.
func serveFakePOP3(t *testing.T, msgs []fakeMessage) (string, int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go handlePOP3(conn, msgs)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func handlePOP3(conn net.Conn, msgs []fakeMessage) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	reply := func(lines ...string) {
		for _, l := range lines {
			fmt.Fprintf(w, "%s\r\n", l)
		}
		_ = w.Flush()
	}
	multi := func(body string) {
		fmt.Fprint(w, "+OK\r\n")
		for _, l := range strings.Split(strings.TrimRight(body, "\r\n"), "\n") {
			l = strings.TrimRight(l, "\r")
			if strings.HasPrefix(l, ".") {
				l = "." + l
			}
			fmt.Fprintf(w, "%s\r\n", l)
		}
		reply(".")
	}
	message := func(arg string) (fakeMessage, bool) {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(msgs) {
			return fakeMessage{}, false
		}
		return msgs[n-1], true
	}

	reply("+OK fake POP3 ready")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch strings.ToUpper(fields[0]) {
		case "USER":
			reply("+OK")
		case "PASS":
			if len(fields) < 2 || fields[1] != "secret" {
				reply("-ERR invalid password")
				continue
			}
			reply("+OK logged in")
		case "UIDL":
			var b strings.Builder
			for i, m := range msgs {
				fmt.Fprintf(&b, "%d %s\n", i+1, m.uid)
			}
			if len(msgs) == 0 {
				reply("+OK", ".")
				continue
			}
			multi(b.String())
		case "TOP":
			m, ok := message(fields[1])
			if !ok {
				reply("-ERR no such message")
				continue
			}
			header, _, _ := strings.Cut(m.raw, "\r\n\r\n")
			multi(header + "\r\n\r\n")
		case "RETR":
			m, ok := message(fields[1])
			if !ok {
				reply("-ERR no such message")
				continue
			}
			multi(m.raw)
		case "NOOP":
			reply("+OK")
		case "QUIT":
			reply("+OK bye")
			return
		default:
			reply("-ERR unknown command")
		}
	}
}

func rawMessage(subject string, received time.Time) string {
	return "Received: from mx.example.com by pop.example.com; " + received.Format(time.RFC1123Z) + "\r\n" +
		"From: Alice <alice@example.com>\r\n" +
		"To: bob@example.com\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		"Body of " + subject + ".\r\n"
}

func TestAdapter_ListAndResolve(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	host, port := serveFakePOP3(t, []fakeMessage{
		{uid: "uid-old", raw: rawMessage("old", now.Add(-40*time.Hour))},
		{uid: "uid-new", raw: rawMessage("new", now.Add(-time.Hour))},
	})

	ctx := context.Background()
	adapter := NewAdapter(Config{Host: host, Port: port, Username: "bob", Password: "secret"})
	err := mailbox.WithSession(ctx, adapter, func(s *mailbox.Session) error {
		emails, err := s.ListRecent(ctx, 7)
		require.NoError(t, err)
		require.Len(t, emails, 1)
		assert.Equal(t, "uid-new", emails[0].Identifier)
		assert.Equal(t, "new", emails[0].Subject)
		assert.True(t, emails[0].ReceivedAt.Equal(now.Add(-time.Hour)))

		full, ok, err := s.Resolve(ctx, "uid-new")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Contains(t, full.Body, "Body of new.")

		_, ok, err = s.Resolve(ctx, "uid-missing")
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestAdapter_BadPassword(t *testing.T) {
	host, port := serveFakePOP3(t, nil)

	_, err := mailbox.Open(context.Background(), NewAdapter(Config{Host: host, Port: port, Username: "bob", Password: "nope"}))
	assert.True(t, source.IsConnectionError(err))
}
