package chat

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mind-engage/studycoach/internal/cache"
	"github.com/mind-engage/studycoach/internal/createai"
	"github.com/mind-engage/studycoach/internal/db"
	"github.com/mind-engage/studycoach/internal/platform/logger"
)

type fakeAI struct {
	err      error
	sessions []string
}

func (f *fakeAI) Query(_ context.Context, q createai.QueryRequest) (createai.QueryResponse, error) {
	if f.err != nil {
		return createai.QueryResponse{}, f.err
	}
	f.sessions = append(f.sessions, q.SessionID)
	return createai.QueryResponse{Response: "echo: " + q.Query, SessionID: "vendor-1"}, nil
}

type nopEvents struct{ n int }

func (e *nopEvents) Append(context.Context, string, string, any) error { e.n++; return nil }

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(context.Background(), db.DriverSQLite,
		"file:"+strings.ReplaceAll(t.Name(), "/", "_")+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { c.t = c.t.Add(time.Second); return c.t }

func newService(t *testing.T, ai *fakeAI) (*Service, *cache.Memory, *nopEvents) {
	mem := cache.NewMemory()
	ev := &nopEvents{}
	svc := NewService(NewSQLStore(openDB(t)), ai, NewSessionTracker(mem), ev, logger.Nop())
	clk := &clock{t: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)}
	svc.now = clk.now
	return svc, mem, ev
}

func TestSend_NewSessionThenContinue(t *testing.T) {
	ctx := context.Background()
	ai := &fakeAI{}
	svc, _, ev := newService(t, ai)

	first, err := svc.Send(ctx, SendRequest{StudentID: "s1", CourseID: "cse110", Message: "  What is   recursion? "})
	if err != nil {
		t.Fatal(err)
	}
	if first.Session.Title != "What is recursion?" || first.Assistant.Content != "echo: What is   recursion?" {
		t.Fatalf("first = %+v", first)
	}
	if first.User.ID == 0 || first.Assistant.ID <= first.User.ID {
		t.Fatalf("message ids = %d, %d", first.User.ID, first.Assistant.ID)
	}

	second, err := svc.Send(ctx, SendRequest{StudentID: "s1", SessionID: first.Session.ID, Message: "And a base case?"})
	if err != nil {
		t.Fatal(err)
	}
	if second.Session.ID != first.Session.ID || second.Session.Title != first.Session.Title {
		t.Fatalf("second session = %+v", second.Session)
	}
	// the vendor session id returned on the first call is reused
	if len(ai.sessions) != 2 || ai.sessions[0] != "" || ai.sessions[1] != "vendor-1" {
		t.Fatalf("vendor sessions = %v", ai.sessions)
	}

	msgs, err := svc.Messages(ctx, "s1", first.Session.ID)
	if err != nil || len(msgs) != 4 || msgs[0].Role != RoleUser || msgs[3].Role != RoleAssistant {
		t.Fatalf("messages = %+v (%v)", msgs, err)
	}
	if ev.n != 2 {
		t.Fatalf("events = %d", ev.n)
	}
}

func TestSend_Errors(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t, &fakeAI{})

	if _, err := svc.Send(ctx, SendRequest{StudentID: "s1", Message: "  "}); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("empty err = %v", err)
	}
	if _, err := svc.Send(ctx, SendRequest{StudentID: "s1", SessionID: "nope", Message: "hi"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing session err = %v", err)
	}

	reply, err := svc.Send(ctx, SendRequest{StudentID: "s1", Message: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Send(ctx, SendRequest{StudentID: "s2", SessionID: reply.Session.ID, Message: "hijack"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign session err = %v", err)
	}
	if _, err := svc.Messages(ctx, "s2", reply.Session.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign messages err = %v", err)
	}
}

func TestSend_NothingStoredWhenAssistantFails(t *testing.T) {
	ctx := context.Background()
	ai := &fakeAI{err: createai.ErrNotConfigured}
	svc, _, ev := newService(t, ai)

	if _, err := svc.Send(ctx, SendRequest{StudentID: "s1", Message: "hi"}); !errors.Is(err, createai.ErrNotConfigured) {
		t.Fatalf("err = %v", err)
	}
	list, err := svc.ListSessions(ctx, "s1")
	if err != nil || len(list) != 0 || ev.n != 0 {
		t.Fatalf("sessions = %+v, events = %d (%v)", list, ev.n, err)
	}
}

func TestLastSession(t *testing.T) {
	ctx := context.Background()
	svc, mem, _ := newService(t, &fakeAI{})

	if _, err := svc.LastSession(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("no sessions err = %v", err)
	}

	a, _ := svc.Send(ctx, SendRequest{StudentID: "s1", Message: "first"})
	b, _ := svc.Send(ctx, SendRequest{StudentID: "s1", Message: "second"})
	if _, err := svc.Send(ctx, SendRequest{StudentID: "s1", SessionID: a.Session.ID, Message: "back to first"}); err != nil {
		t.Fatal(err)
	}

	last, err := svc.LastSession(ctx, "s1")
	if err != nil || last.ID != a.Session.ID {
		t.Fatalf("tracked last = %+v (%v)", last, err)
	}

	// expired pointer falls back to the most recently updated session
	_ = mem.Delete(ctx, trackerKey("s1"))
	last, err = svc.LastSession(ctx, "s1")
	if err != nil || last.ID != a.Session.ID {
		t.Fatalf("fallback last = %+v (%v)", last, err)
	}

	list, _ := svc.ListSessions(ctx, "s1")
	if len(list) != 2 || list[0].ID != a.Session.ID || list[1].ID != b.Session.ID {
		t.Fatalf("sessions = %+v", list)
	}
}

func TestSessionTrackerExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewSessionTracker(cache.NewMemoryWithClock(func() time.Time { return now }))
	if err := tr.Track(ctx, "s1", "sess-1"); err != nil {
		t.Fatal(err)
	}
	if id, ok, _ := tr.Last(ctx, "s1"); !ok || id != "sess-1" {
		t.Fatalf("last = %q %v", id, ok)
	}
	now = now.Add(7 * 24 * time.Hour)
	if _, ok, _ := tr.Last(ctx, "s1"); ok {
		t.Fatal("pointer should expire after seven days")
	}
}

func TestTitleTruncates(t *testing.T) {
	long := strings.Repeat("é", 80)
	got := title(long)
	if n := len([]rune(got)); n != maxTitleRunes || !strings.HasSuffix(got, "…") {
		t.Fatalf("title = %q (%d runes)", got, n)
	}
}
