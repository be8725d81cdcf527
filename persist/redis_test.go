package persist_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/enetx/hfsm"
	"github.com/enetx/hfsm/persist"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ticket struct {
	Title    string `json:"title"    yaml:"title"`
	Assignee string `json:"assignee" yaml:"assignee"`
}

func ticketDef(t *testing.T) *hfsm.Definition[ticket] {
	t.Helper()

	def, err := hfsm.NewDefinition(ticket{Title: "bug"}).
		On("open", "ASSIGN", hfsm.EventDef[ticket]{Target: "in_progress", Reducer: hfsm.Assign[ticket]()}).
		Transition("in_progress", "CLOSE", "closed").
		State("closed").
		Build()
	require.NoError(t, err)

	return def
}

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestStore_SaveLoad(t *testing.T) {
	for name, codec := range map[string]persist.Codec{"json": persist.JSON, "yaml": persist.YAML} {
		t.Run(name, func(t *testing.T) {
			_, client := setup(t)
			s := persist.New[ticket](client, persist.WithCodec(codec))
			ctx := context.Background()

			snap := hfsm.Snapshot[ticket]{State: "in_progress", Previous: "open", Context: ticket{Title: "bug", Assignee: "kim"}}
			require.NoError(t, s.Save(ctx, "t-1", snap))

			loaded, err := s.Load(ctx, "t-1")
			require.NoError(t, err)
			assert.Equal(t, snap, loaded)
		})
	}
}

func TestStore_LoadMissing(t *testing.T) {
	_, client := setup(t)
	s := persist.New[ticket](client)

	_, err := s.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, persist.ErrNotFound)
}

func TestStore_Prefix(t *testing.T) {
	mr, client := setup(t)
	s := persist.New[ticket](client, persist.WithPrefix("tickets:"))

	require.NoError(t, s.Save(context.Background(), "t-1", hfsm.Snapshot[ticket]{State: "open"}))
	assert.True(t, mr.Exists("tickets:t-1"))

	require.NoError(t, s.Delete(context.Background(), "t-1"))
	assert.False(t, mr.Exists("tickets:t-1"))
}

func TestStore_TTL(t *testing.T) {
	mr, client := setup(t)
	s := persist.New[ticket](client, persist.WithTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "t-1", hfsm.Snapshot[ticket]{State: "open"}))

	mr.FastForward(2 * time.Second)

	_, err := s.Load(ctx, "t-1")
	assert.ErrorIs(t, err, persist.ErrNotFound)
}

func TestStore_MiddlewareAndRestore(t *testing.T) {
	_, client := setup(t)
	s := persist.New[ticket](client)
	def := ticketDef(t)

	m := def.New(
		hfsm.WithID[ticket]("t-42"),
		hfsm.WithMiddleware[ticket](s.Middleware("t-42")),
	)

	require.NoError(t, m.Send("ASSIGN", map[string]any{"assignee": "kim"}))

	restored := def.New(hfsm.WithID[ticket]("t-42"))
	require.NoError(t, s.Restore(context.Background(), restored))

	assert.Equal(t, hfsm.State("in_progress"), restored.Current())
	assert.Equal(t, "kim", restored.Context().Assignee)
	assert.Equal(t, hfsm.State("open"), restored.Previous().Some())

	require.NoError(t, restored.Send("CLOSE"))
	assert.Equal(t, hfsm.State("closed"), restored.Current())
}

func TestStore_RestoreUnknownState(t *testing.T) {
	_, client := setup(t)
	s := persist.New[ticket](client)

	require.NoError(t, s.Save(context.Background(), "t-1", hfsm.Snapshot[ticket]{State: "archived"}))

	m := ticketDef(t).New(hfsm.WithID[ticket]("t-1"))

	var unknown *hfsm.ErrUnknownState
	assert.ErrorAs(t, s.Restore(context.Background(), m), &unknown)
	assert.Equal(t, hfsm.State("open"), m.Current())
}

func TestStore_MiddlewareLogsFailures(t *testing.T) {
	mr, client := setup(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := persist.New[ticket](client, persist.WithLogger(logger), persist.WithTimeout(100*time.Millisecond))
	m := ticketDef(t).New(hfsm.WithMiddleware[ticket](s.Middleware("t-1")))

	mr.Close()

	require.NoError(t, m.Send("ASSIGN"))
	assert.Equal(t, hfsm.State("in_progress"), m.Current())
	assert.Contains(t, buf.String(), "snapshot save failed")
}
