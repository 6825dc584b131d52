// main.go
//
// teamsync is the command-line client. It talks to a syncd server when
// -server is set, or runs against the built-in demo fixtures when it isn't.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/kor4soft/teamsync/internal/backend"
	"github.com/kor4soft/teamsync/internal/backend/memory"
	"github.com/kor4soft/teamsync/internal/backend/remote"
	"github.com/kor4soft/teamsync/internal/notify"
	"github.com/kor4soft/teamsync/internal/realtime"
	"github.com/kor4soft/teamsync/internal/session"
	"github.com/kor4soft/teamsync/internal/store"
	"github.com/kor4soft/teamsync/internal/types"
)

const usage = `Usage: teamsync [flags] <command> [args]

Commands:
  login <email> <password>     sign in (use -remember to stay signed in)
  logout                       sign out and clear the saved session
  whoami                       show the signed-in user

  notes [status]               list notes, optionally filtered by status
  note-add <title> [content]   create a note
  note-done <id>               mark a note completed
  comments <note-id>           show a note's discussion thread
  comment-add <note-id> <text> comment on a note

  channels                     list chat channels
  chat [channel-id]            show recent messages of a channel
  send <channel-id> <text>     post a message
  channel-add <name>           create a channel
  channel-rm <channel-id>      file a delete request for a channel
  vote <request-id> yes|no     vote on a pending delete request
  requests                     list pending delete requests

  team                         list team members
  meetings                     list upcoming meetings
  expenses                     list expenses with totals
  notifications                list notifications
  unread                       show the unread chat count
  watch                        follow live changes until interrupted

Flags:
`

func main() {
	log.SetFlags(0)

	var (
		serverURL = flag.String("server", os.Getenv("TEAMSYNC_SERVER"), "syncd base URL; empty runs the offline demo")
		remember  = flag.Bool("remember", false, "persist the session token")
	)
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var provider backend.Provider
	if *serverURL != "" {
		provider = remote.New(*serverURL)
	} else {
		provider = memory.New()
	}

	sess, err := session.New(provider, "")
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if _, err := sess.Restore(ctx); err != nil {
		log.Printf("⚠️ Could not restore session: %v", err)
	}
	// The demo provider has no persisted tokens; sign in as the fixture admin.
	if *serverURL == "" && sess.CurrentUser() == nil {
		if _, err := sess.SignIn(ctx, "carlos@demo.team", "demo", false); err != nil {
			log.Fatalf("❌ Demo sign-in failed: %v", err)
		}
	}

	app := newApp(provider, sess)
	if err := app.run(ctx, flag.Arg(0), flag.Args()[1:], *remember); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

type app struct {
	provider backend.Provider
	session  *session.Session

	team     *store.TeamStore
	notes    *store.NotesStore
	comments *store.CommentsStore
	meetings *store.MeetingsStore
	expenses *store.ExpensesStore
	chat     *store.ChatStore
	requests *store.DeleteRequestsStore
	inbox    *store.NotificationsStore
	unread   *realtime.UnreadCounter
}

func newApp(provider backend.Provider, sess *session.Session) *app {
	notifier := notify.NewService(provider, sess)
	team := store.NewTeamStore(provider, sess)
	chat := store.NewChatStore(provider, sess)
	notes := store.NewNotesStore(provider, sess, notifier)
	return &app{
		provider: provider,
		session:  sess,
		team:     team,
		notes:    notes,
		comments: store.NewCommentsStore(provider, sess, notes, notifier),
		meetings: store.NewMeetingsStore(provider, sess, notifier),
		expenses: store.NewExpensesStore(provider, sess),
		chat:     chat,
		requests: store.NewDeleteRequestsStore(provider, sess, chat, team),
		inbox:    store.NewNotificationsStore(provider, sess),
		unread:   realtime.NewUnreadCounter(provider, sess),
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string, remember bool) error {
	switch cmd {
	case "login":
		if len(args) < 2 {
			return fmt.Errorf("usage: login <email> <password>")
		}
		user, err := a.session.SignIn(ctx, args[0], args[1], remember)
		if err != nil {
			return err
		}
		fmt.Printf("Signed in as %s <%s>\n", user.FullName, user.Email)
		return nil

	case "logout":
		if err := a.session.SignOut(ctx); err != nil {
			return err
		}
		fmt.Println("Signed out")
		return nil

	case "whoami":
		user := a.session.CurrentUser()
		if user == nil {
			fmt.Println("Not signed in")
			return nil
		}
		fmt.Printf("%s <%s> (%s)\n", user.FullName, user.Email, user.Role)
		return nil

	case "notes":
		return a.listNotes(ctx, args)
	case "note-add":
		return a.addNote(ctx, args)
	case "note-done":
		return a.completeNote(ctx, args)
	case "comments":
		return a.listComments(ctx, args)
	case "comment-add":
		return a.addComment(ctx, args)

	case "channels":
		return a.listChannels(ctx)
	case "chat":
		return a.showChat(ctx, args)
	case "send":
		return a.sendMessage(ctx, args)
	case "channel-add":
		return a.addChannel(ctx, args)
	case "channel-rm":
		return a.requestChannelDelete(ctx, args)
	case "vote":
		return a.vote(ctx, args)
	case "requests":
		return a.listRequests(ctx)

	case "team":
		return a.listTeam(ctx)
	case "meetings":
		return a.listMeetings(ctx)
	case "expenses":
		return a.listExpenses(ctx)
	case "notifications":
		return a.listNotifications(ctx)
	case "unread":
		return a.showUnread(ctx)
	case "watch":
		return a.watch(ctx)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// ============================================
// Notes
// ============================================

func (a *app) listNotes(ctx context.Context, args []string) error {
	if len(args) > 0 {
		status := types.NoteStatus(args[0])
		if err := a.notes.SetFilter(ctx, store.FilterPatch{Status: &status}); err != nil {
			return err
		}
	} else if err := a.notes.Fetch(ctx, false); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tPRIORITY\tTITLE")
	for _, n := range a.notes.TopLevel() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", n.ID, n.Type, n.Status, n.Priority, n.Title)
		for _, sub := range a.notes.Subtasks(n.ID) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t  ↳ %s\n", sub.ID, sub.Type, sub.Status, sub.Priority, sub.Title)
		}
	}
	return w.Flush()
}

func (a *app) addNote(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: note-add <title> [content]")
	}
	row := backend.Row{"title": args[0]}
	if len(args) > 1 {
		row["content"] = strings.Join(args[1:], " ")
	}
	note, err := a.notes.Create(ctx, row)
	if err != nil {
		return err
	}
	fmt.Printf("Created note %s\n", note.ID)
	return nil
}

func (a *app) completeNote(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: note-done <id>")
	}
	if err := a.notes.Fetch(ctx, false); err != nil {
		return err
	}
	note, err := a.notes.Update(ctx, args[0], backend.Row{"status": string(types.StatusCompleted)})
	if err != nil {
		return err
	}
	fmt.Printf("Completed %q\n", note.Title)
	return nil
}

func (a *app) listComments(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: comments <note-id>")
	}
	if err := a.team.Fetch(ctx, false); err != nil {
		return err
	}
	if err := a.comments.FetchFor(ctx, args[0]); err != nil {
		return err
	}
	for _, c := range a.comments.Items() {
		name := a.team.DisplayName(c.UserID)
		if c.User != nil && c.User.FullName != "" {
			name = c.User.FullName
		}
		fmt.Printf("[%s] %s: %s\n", c.CreatedAt.Local().Format("Jan 2 15:04"), name, c.Content)
	}
	return nil
}

func (a *app) addComment(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: comment-add <note-id> <text>")
	}
	if err := a.notes.Fetch(ctx, false); err != nil {
		return err
	}
	if err := a.comments.FetchFor(ctx, args[0]); err != nil {
		return err
	}
	c, err := a.comments.Add(ctx, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Printf("Added comment %s\n", c.ID)
	return nil
}

// ============================================
// Chat
// ============================================

func (a *app) listChannels(ctx context.Context) error {
	if err := a.chat.FetchChannels(ctx, false); err != nil {
		return err
	}
	current := a.chat.CurrentChannelID()
	for _, ch := range a.chat.Channels() {
		marker := " "
		if ch.ID == current {
			marker = "*"
		}
		fmt.Printf("%s %s\t#%s\t%s\n", marker, ch.ID, ch.Name, ch.Description)
	}
	return nil
}

func (a *app) showChat(ctx context.Context, args []string) error {
	if err := a.chat.FetchChannels(ctx, false); err != nil {
		return err
	}
	channelID := a.chat.CurrentChannelID()
	if len(args) > 0 {
		channelID = args[0]
	}
	if channelID == "" {
		return fmt.Errorf("no channels yet")
	}
	if err := a.chat.SelectChannel(ctx, channelID); err != nil {
		return err
	}
	if err := a.team.Fetch(ctx, false); err != nil {
		return err
	}

	ch, _ := a.chat.CurrentChannel()
	fmt.Printf("#%s\n", ch.Name)
	for _, m := range a.chat.Messages() {
		name := a.team.DisplayName(m.UserID)
		if m.User != nil && m.User.FullName != "" {
			name = m.User.FullName
		}
		suffix := ""
		if m.EditedAt != nil {
			suffix = " (edited)"
		}
		fmt.Printf("[%s] %s: %s%s\n", m.CreatedAt.Local().Format("Jan 2 15:04"), name, m.Content, suffix)
	}
	return nil
}

func (a *app) sendMessage(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: send <channel-id> <text>")
	}
	if err := a.chat.FetchChannels(ctx, false); err != nil {
		return err
	}
	if err := a.chat.SelectChannel(ctx, args[0]); err != nil {
		return err
	}
	msg, err := a.chat.SendMessage(ctx, strings.Join(args[1:], " "), types.MessageText, "")
	if err != nil {
		return err
	}
	fmt.Printf("Sent %s\n", msg.ID)
	return nil
}

func (a *app) addChannel(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: channel-add <name>")
	}
	if err := a.chat.FetchChannels(ctx, false); err != nil {
		return err
	}
	ch, err := a.chat.CreateChannel(ctx, args[0], "", types.ChannelPublic)
	if err != nil {
		return err
	}
	fmt.Printf("Created channel #%s (%s)\n", ch.Name, ch.ID)
	return nil
}

// ============================================
// Channel delete voting
// ============================================

func (a *app) requestChannelDelete(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: channel-rm <channel-id>")
	}
	if err := a.loadVoting(ctx); err != nil {
		return err
	}
	req, err := a.requests.Request(ctx, args[0])
	if err != nil {
		return err
	}
	a.printRequest(req)
	return nil
}

func (a *app) vote(ctx context.Context, args []string) error {
	if len(args) < 2 || (args[1] != "yes" && args[1] != "no") {
		return fmt.Errorf("usage: vote <request-id> yes|no")
	}
	if err := a.loadVoting(ctx); err != nil {
		return err
	}
	req, err := a.requests.Vote(ctx, args[0], args[1] == "yes")
	if err != nil {
		return err
	}
	a.printRequest(req)
	return nil
}

func (a *app) listRequests(ctx context.Context) error {
	if err := a.loadVoting(ctx); err != nil {
		return err
	}
	for _, r := range a.requests.Items() {
		if r.Status != types.DeleteRequestPending {
			continue
		}
		a.printRequest(r)
	}
	return nil
}

// loadVoting fetches everything the vote math needs: the request list, the
// channel names, and the team size.
func (a *app) loadVoting(ctx context.Context) error {
	if err := a.team.Fetch(ctx, false); err != nil {
		return err
	}
	if err := a.chat.FetchChannels(ctx, false); err != nil {
		return err
	}
	return a.requests.Fetch(ctx, false)
}

func (a *app) printRequest(r types.ChannelDeleteRequest) {
	name := r.ChannelID
	if ch, ok := a.chat.Channel(r.ChannelID); ok {
		name = "#" + ch.Name
	}
	fmt.Printf("%s  delete %s  %s  (%d/%d approvals, %d rejections)\n",
		r.ID, name, r.Status, len(r.Approvals), a.team.Size(), len(r.Rejections))
}

// ============================================
// Directory, meetings, expenses, inbox
// ============================================

func (a *app) listTeam(ctx context.Context) error {
	if err := a.team.Fetch(ctx, false); err != nil {
		return err
	}
	for _, u := range a.team.Items() {
		fmt.Printf("%s\t%s <%s>\t%s\n", u.ID, u.FullName, u.Email, u.Role)
	}
	return nil
}

func (a *app) listMeetings(ctx context.Context) error {
	if err := a.meetings.Fetch(ctx, false); err != nil {
		return err
	}
	for _, m := range a.meetings.Upcoming(time.Now()) {
		fmt.Printf("%s  %s  %s (%d min, %d participants)\n",
			m.ID, m.StartsAt.Local().Format("Mon Jan 2 15:04"), m.Title, m.DurationMin, len(m.Participants))
	}
	return nil
}

func (a *app) listExpenses(ctx context.Context) error {
	if err := a.expenses.Fetch(ctx, false); err != nil {
		return err
	}
	for _, e := range a.expenses.Items() {
		category := "-"
		if c, ok := a.expenses.Category(e.CategoryID); ok {
			category = c.Name
		}
		fmt.Printf("%s\t%s\t%s\t%s\n", e.ID, e.IncurredOn.Format("2006-01-02"), e.Amount.StringFixed(2), category)
	}
	fmt.Printf("Total: %s\n", a.expenses.Total().StringFixed(2))
	return nil
}

func (a *app) listNotifications(ctx context.Context) error {
	if err := a.inbox.Fetch(ctx, false); err != nil {
		return err
	}
	for _, n := range a.inbox.Items() {
		mark := " "
		if !n.Read {
			mark = "•"
		}
		fmt.Printf("%s %s\t%s: %s\n", mark, n.ID, n.Title, n.Message)
	}
	return nil
}

func (a *app) showUnread(ctx context.Context) error {
	if err := a.unread.Check(ctx, true); err != nil {
		return err
	}
	fmt.Printf("%d unread chat messages\n", a.unread.Unread())
	return nil
}

// ============================================
// Watch
// ============================================

// watch subscribes to chat and notifications and prints changes as they
// arrive, until interrupted.
func (a *app) watch(ctx context.Context) error {
	if err := a.chat.FetchChannels(ctx, false); err != nil {
		return err
	}
	if err := a.team.Fetch(ctx, false); err != nil {
		return err
	}

	stopMsgs := realtime.WatchChannelMessages(ctx, a.provider, a.chat, a.chat.CurrentChannelID())
	defer stopMsgs()
	stopInbox := realtime.WatchNotifications(ctx, a.provider, a.inbox, a.session.UserID())
	defer stopInbox()
	stopUnread := a.unread.Watch(ctx)
	defer stopUnread()

	stop, err := a.provider.Subscribe(ctx, backend.TableChatMessages,
		[]backend.EventType{backend.EventInsert}, backend.Filter{},
		func(ev backend.Event) {
			fmt.Printf("%s: %s\n", a.team.DisplayName(ev.Row.String("user_id")), ev.Row.String("content"))
		})
	if err != nil {
		return err
	}
	defer stop()

	fmt.Println("Watching for changes, Ctrl-C to stop...")
	<-ctx.Done()
	return nil
}
