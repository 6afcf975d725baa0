package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/omochice/relay-chat-client/internal/chat"
	"github.com/omochice/relay-chat-client/internal/render"
	"github.com/omochice/relay-chat-client/internal/session"
)

const helpText = `Commands:
  /contacts                 list contacts
  /select NAME              open a conversation
  /group NAME: A, B         create a group and open it
  /online NAME on|off       mark a contact online or offline
  /typing                   tell the conversation you are typing
  /idle                     tell the conversation you stopped typing
  /status                   show connection status
  /help                     show this help
  /quit                     exit
Anything else is sent to the open conversation.`

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newSyncWriter(w io.Writer) *syncWriter {
	return &syncWriter{w: w}
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

type repl struct {
	sess     *chat.Session
	out      io.Writer
	renderer *render.Renderer
}

func newREPL(sess *chat.Session, out io.Writer) *repl {
	return &repl{sess: sess, out: out, renderer: render.New()}
}

func (r *repl) run(ctx context.Context, scanner *bufio.Scanner) error {
	updates, cancel := r.sess.Subscribe(16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.watch(updates, r.sess.State())
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	st := r.sess.State()
	r.println(r.renderer.Status(st))
	r.println(r.renderer.Contacts(st))
	r.println(r.renderer.Thread(st))
	r.println("Type /help for commands.")

	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Printf("Error reading input: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := r.handle(ctx, strings.TrimSpace(line)); quit {
				return nil
			}
		}
	}
}

func (r *repl) handle(ctx context.Context, line string) bool {
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		if err := r.sess.Send(ctx, line); err != nil {
			r.println("send failed: " + err.Error())
		}
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		r.println(helpText)
	case "/contacts":
		r.println(r.renderer.Contacts(r.sess.State()))
	case "/status":
		r.println(r.renderer.Status(r.sess.State()))
	case "/select":
		if err := r.sess.SelectContact(arg); err != nil {
			r.println(err.Error())
			return false
		}
		r.println(r.renderer.Thread(r.sess.State()))
	case "/group":
		name, members, err := parseGroup(arg)
		if err != nil {
			r.println(err.Error())
			return false
		}
		group, err := r.sess.CreateGroup(name, members)
		if err != nil {
			r.println(err.Error())
			return false
		}
		r.println(fmt.Sprintf("created group %s with %d members", group.Name, len(group.Members)))
	case "/online":
		if err := r.setOnline(arg); err != nil {
			r.println(err.Error())
		}
	case "/typing":
		if err := r.sess.Focus(ctx); err != nil {
			r.println(err.Error())
		}
	case "/idle":
		if err := r.sess.Blur(ctx); err != nil {
			r.println(err.Error())
		}
	default:
		r.println("unknown command " + cmd + "; type /help")
	}
	return false
}

func (r *repl) setOnline(arg string) error {
	i := strings.LastIndex(arg, " ")
	if i < 0 {
		return fmt.Errorf("usage: /online NAME on|off")
	}
	name, flag := strings.TrimSpace(arg[:i]), arg[i+1:]
	if flag != "on" && flag != "off" {
		return fmt.Errorf("usage: /online NAME on|off")
	}
	c, ok := r.sess.State().Contact(name)
	if !ok {
		return fmt.Errorf("%q: %w", name, session.ErrContactNotFound)
	}
	return r.sess.UpdateContactStatus(c.ID, flag == "on")
}

// parseGroup splits "NAME: A, B" into the group name and member names.
func parseGroup(arg string) (string, []string, error) {
	name, list, ok := strings.Cut(arg, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", nil, fmt.Errorf("usage: /group NAME: MEMBER, MEMBER")
	}
	var members []string
	for _, m := range strings.Split(list, ",") {
		if m = strings.TrimSpace(m); m != "" {
			members = append(members, m)
		}
	}
	if len(members) == 0 {
		return "", nil, fmt.Errorf("group %s needs at least one member", name)
	}
	return name, members, nil
}

// watch prints what changed between successive snapshots.
func (r *repl) watch(updates <-chan session.State, prev session.State) {
	for st := range updates {
		for key, msgs := range st.Conversations {
			seen := len(prev.Conversations[key])
			if len(msgs) < seen {
				seen = 0
			}
			for _, m := range msgs[seen:] {
				line := r.renderer.Message(m)
				if key != st.Selected {
					line = "(" + key + ") " + line
				}
				r.println(line)
			}
		}
		if st.Typing && !prev.Typing && st.Selected != "" {
			r.println(st.Selected + " is typing...")
		}
		if st.Connection != prev.Connection || (st.Notice != prev.Notice && st.Notice != "") {
			r.println(r.renderer.Status(st))
		}
		prev = st
	}
}

func (r *repl) println(s string) {
	fmt.Fprintln(r.out, s)
}
